package cli

import (
	"context"
	"log/slog"

	"github.com/firebook-app/firebook/pkg/cli/config"
	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/firebook-app/firebook/pkg/service/metadata"
	"github.com/firebook-app/firebook/pkg/usecase"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// pipelineConfig gathers the flags every command that runs stages needs
type pipelineConfig struct {
	app      config.App
	repo     config.Repository
	vector   config.VectorStore
	cache    config.Cache
	storage  config.Storage
	browser  config.Browser
	language config.Language
	gemini   config.Gemini
	cdn      config.CDN
}

func (p *pipelineConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, p.app.Flags()...)
	flags = append(flags, p.repo.Flags()...)
	flags = append(flags, p.vector.Flags()...)
	flags = append(flags, p.cache.Flags()...)
	flags = append(flags, p.storage.Flags()...)
	flags = append(flags, p.browser.Flags()...)
	flags = append(flags, p.language.Flags()...)
	flags = append(flags, p.gemini.Flags()...)
	flags = append(flags, p.cdn.Flags()...)
	return flags
}

type pipeline struct {
	app     *config.AppConfig
	repo    interfaces.Repository
	uc      *usecase.UseCases
	closers []func()
}

// Close releases clients in reverse order of creation
func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// build wires every configured client into the use cases. Unconfigured
// capabilities leave their stage disabled.
func (p *pipelineConfig) build(ctx context.Context) (_ *pipeline, err error) {
	out := &pipeline{}
	defer func() {
		if err != nil {
			out.Close()
		}
	}()

	appCfg, err := p.app.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load app configuration")
	}
	out.app = appCfg

	repo, closeRepo, err := p.repo.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}
	out.repo = repo
	out.closers = append(out.closers, closeRepo)

	ucOpts := []usecase.Option{
		usecase.WithMetadata(metadata.New(appCfg.MetadataOptions()...)),
	}

	vectors, closeVectors, err := p.vector.Configure(ctx)
	if err != nil {
		return nil, err
	}
	out.closers = append(out.closers, closeVectors)
	if vectors != nil {
		ucOpts = append(ucOpts, usecase.WithEmbeddingRepository(vectors))
	}

	c, err := p.cache.Configure()
	if err != nil {
		return nil, err
	}
	ucOpts = append(ucOpts, usecase.WithCache(c))

	blobs, closeBlobs, err := p.storage.Configure(ctx)
	if err != nil {
		return nil, err
	}
	out.closers = append(out.closers, closeBlobs)
	if blobs != nil {
		ucOpts = append(ucOpts, usecase.WithBlobStorage(blobs))
		if shot := p.browser.Configure(appCfg); shot != nil {
			ucOpts = append(ucOpts, usecase.WithScreenshot(shot))
		}
	} else {
		logging.Default().Info("No storage bucket configured, screenshots disabled")
	}

	tags, closeTags, err := p.language.Configure(ctx, appCfg)
	if err != nil {
		return nil, err
	}
	out.closers = append(out.closers, closeTags)
	ucOpts = append(ucOpts, usecase.WithTagger(tags))

	embedder, describer, err := p.gemini.Services(ctx)
	if err != nil {
		return nil, err
	}
	if embedder != nil {
		ucOpts = append(ucOpts, usecase.WithEmbedder(embedder), usecase.WithDescriber(describer))
		logging.Default().Info("Gemini enabled",
			slog.Attr{Key: "gemini", Value: slog.GroupValue(p.gemini.LogAttrs()...)})
	} else {
		logging.Default().Info("Gemini project not configured, embeddings disabled")
	}

	purger, err := p.cdn.Configure()
	if err != nil {
		return nil, err
	}
	ucOpts = append(ucOpts, usecase.WithCDN(purger))

	out.uc = usecase.New(repo, ucOpts...)
	return out, nil
}
