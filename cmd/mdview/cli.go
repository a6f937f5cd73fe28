package main

// CLI defines the command-line interface structure for Kong. The program
// is a single command: serve a Markdown file or directory.
type CLI struct {
	Path    string `arg:"" optional:"" help:"File or directory to serve (default: current directory)"`
	Address string `arg:"" optional:"" help:"Listen address: host, port, or host:port"`

	Browser     bool   `short:"b" help:"Open the page in the default browser once the server is reachable"`
	Quiet       bool   `help:"Suppress request and change-detection logging"`
	NoRefresh   bool   `name:"norefresh" help:"Disable live page refresh"`
	Wide        bool   `help:"Use the full-width page style"`
	UserContent bool   `name:"user-content" help:"Render as user-generated content (comment and issue rules)"`
	Context     string `help:"Context repository for user-content rendering (owner/repo)"`
	User        string `help:"GitHub username for API authentication"`
	Pass        string `help:"GitHub password or personal access token"`
	Offline     bool   `help:"Render locally instead of using the GitHub API"`
	APIURL      string `name:"api-url" help:"GitHub API base URL (for GitHub Enterprise)"`
	Title       string `help:"Override the page title"`
	Export      string `name:"export" placeholder:"FILE" help:"Render to a standalone HTML file instead of serving ('-' for stdout)"`
	ClearCache  bool   `name:"clear-cache" help:"Clear the cached styles and exit"`
}
