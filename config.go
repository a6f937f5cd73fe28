package mdview

// Defaults applied when neither the settings file nor CLI flags provide a
// value.
const (
	DefaultHost   = "localhost"
	DefaultPort   = 6419
	DefaultAPIURL = "https://api.github.com"

	// DefaultURLPrefix is the path prefix for server-internal routes
	// (refresh streams, cached assets, the rate-limit preview). Kept out
	// of the document namespace so it cannot shadow a served file.
	DefaultURLPrefix = "/__/mdview"
)

// Config holds server configuration. Values are loaded from the settings
// file in the instance directory and overridden by CLI flags.
type Config struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	APIURL      string   `yaml:"api_url"`
	Quiet       bool     `yaml:"quiet"`
	Autorefresh bool     `yaml:"autorefresh"`
	StyleURLs   []string `yaml:"style_urls"`
}

// DefaultConfig returns the configuration used when no settings file is
// present.
func DefaultConfig() Config {
	return Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		APIURL:      DefaultAPIURL,
		Autorefresh: true,
	}
}
