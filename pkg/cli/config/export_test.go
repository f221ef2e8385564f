package config

import "time"

func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{projectID: projectID, location: location}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewCacheForTest(backend, url, token string) *Cache {
	return &Cache{backend: backend, upstashURL: url, upstashToken: token}
}

func NewCDNForTest(zoneID, token, appBase string) *CDN {
	return &CDN{zoneID: zoneID, token: token, appBase: appBase}
}

func NewAuthForTest(projectID, noAuthn string) *Auth {
	return &Auth{projectID: projectID, noAuthn: noAuthn}
}

func NewVectorStoreForTest(backend, dsn string) *VectorStore {
	return &VectorStore{backend: backend, dsn: dsn}
}

func NewRepositoryForTest(backend, projectID string) *Repository {
	return &Repository{backend: backend, projectID: projectID, databaseID: "(default)"}
}

func NewLanguageForTest(enabled bool, timeout time.Duration) *Language {
	return &Language{enabled: enabled, timeout: timeout}
}

func NewAppForTest(path string) *App {
	return &App{path: path}
}
