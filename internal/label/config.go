package label

// RawParts selects which nodes feed the raw retrieval label.
const (
	PartsAfterFirstBeforeLast = "after_first_and_before_last" // default
	PartsAll                  = "all"
	PartsFirstOnly            = "first_only"
	PartsLastOnly             = "last_only"
)

// Format modes for the final stored label text.
const (
	FormatAI     = "ai" // summarize via the completion service, fall back to raw
	FormatRaw    = "raw"
	FormatCustom = "custom"
)

// Config controls how a retrieval label is derived from a trace.
// All limits count runes, not bytes.
type Config struct {
	RawParts        string `yaml:"raw_parts"`
	AfterFirstLimit int    `yaml:"after_first_limit"`
	BeforeLastLimit int    `yaml:"before_last_limit"`
	Separator       string `yaml:"separator"`
	FormatMode      string `yaml:"format_mode"`
	AIPrompt        string `yaml:"ai_prompt"` // {raw_label} is substituted
	CustomTemplate  string `yaml:"custom_template"`
	OutputMaxLen    int    `yaml:"output_max_len"`
}

// DefaultAIPrompt asks for a one-sentence "opening / outcome / purpose" summary.
const DefaultAIPrompt = `Summarize the following chain-of-thought in exactly one sentence of the form "opening content, final result, final purpose".
Output only that sentence, nothing else. Example: "Started by discussing X, concluded Y, in order to Z."

Chain-of-thought content:
{raw_label}`

// DefaultConfig returns the default label derivation settings.
func DefaultConfig() Config {
	return Config{
		RawParts:        PartsAfterFirstBeforeLast,
		AfterFirstLimit: 300,
		BeforeLastLimit: 300,
		Separator:       " | ",
		FormatMode:      FormatAI,
		AIPrompt:        DefaultAIPrompt,
		CustomTemplate:  "{raw_label}",
		OutputMaxLen:    500,
	}
}
