package menulens

// GenerateOption represents options for generation
type GenerateOption func(*generateConfig)

type generateConfig struct {
	ModelName       string
	Messages        []*Message
	JSONOutput      bool
	Temperature     *float32
	MaxOutputTokens int32
}

// WithModelName sets the model name
func WithModelName(name string) GenerateOption {
	return func(cfg *generateConfig) {
		cfg.ModelName = name
	}
}

// WithMessages sets the messages
func WithMessages(messages ...*Message) GenerateOption {
	return func(cfg *generateConfig) {
		cfg.Messages = messages
	}
}

// WithJSONOutput requests an application/json response body.
func WithJSONOutput(on bool) GenerateOption {
	return func(cfg *generateConfig) {
		cfg.JSONOutput = on
	}
}

// WithTemperature sets the sampling temperature. Values outside [0,1] are ignored.
func WithTemperature(t float32) GenerateOption {
	return func(cfg *generateConfig) {
		if t < 0 || t > 1 {
			return
		}
		cfg.Temperature = &t
	}
}

// WithMaxOutputTokens caps the response length. Zero leaves the provider default.
func WithMaxOutputTokens(n int32) GenerateOption {
	return func(cfg *generateConfig) {
		if n > 0 {
			cfg.MaxOutputTokens = n
		}
	}
}
