package types

// TagMethod records how suggested tags were produced
type TagMethod string

const (
	// TagMethodNLP means classifier categories and entities were used
	TagMethodNLP TagMethod = "nlp"
	// TagMethodDomainOnly means the text was below the word-count gate
	TagMethodDomainOnly TagMethod = "domain-only"
	// TagMethodDomainFallback means the classifier rejected the text as too short
	TagMethodDomainFallback TagMethod = "domain-fallback"
)

func (m TagMethod) String() string {
	return string(m)
}
