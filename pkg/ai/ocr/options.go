package ocr

// Options tune a single recognition call.
type Options struct {
	Model         string
	LanguageHints []string
	MaxTokens     int

	// DocumentType hints the prompt, e.g. "invoice" or "academic_paper".
	DocumentType string

	ProviderOptions map[string]any
}

type Option func(*Options)

func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

func WithLanguageHints(langs ...string) Option {
	return func(o *Options) { o.LanguageHints = langs }
}

func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

func WithDocumentType(docType string) Option {
	return func(o *Options) { o.DocumentType = docType }
}

func WithProviderOption(key string, value any) Option {
	return func(o *Options) {
		if o.ProviderOptions == nil {
			o.ProviderOptions = make(map[string]any)
		}
		o.ProviderOptions[key] = value
	}
}

func ApplyOptions(opts ...Option) *Options {
	options := &Options{ProviderOptions: make(map[string]any)}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
