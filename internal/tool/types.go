// Package tool executes the four agent tools. File tools are confined to
// the workspace, and run_cmd goes through the full guard/sandbox/approval
// pipeline before a child process is spawned.
package tool

import "time"

// Tool names accepted by Executor.Execute.
const (
	NameReadFile   = "read_file"
	NameWriteFile  = "write_file"
	NameSearchText = "search_text"
	NameRunCommand = "run_cmd"
)

// Names returns all supported tool names.
func Names() []string {
	return []string{NameReadFile, NameWriteFile, NameSearchText, NameRunCommand}
}

// Context carries per-invocation settings that come from the CLI layer.
type Context struct {
	// Cwd is the workspace root; file paths must stay underneath it and
	// commands run inside it.
	Cwd string
	// Yes approves confirmation-level prompts without asking. It never
	// overrides the blocklist, a sandbox denial, or an approval-policy deny.
	Yes bool
	// Interactive allows a blocking y/n prompt on standard input.
	Interactive bool
}

// ReadFileArgs are the arguments of the read_file tool.
type ReadFileArgs struct {
	Path string `mapstructure:"path"`
}

// ReadFileOutput is the result of the read_file tool.
type ReadFileOutput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteFileArgs are the arguments of the write_file tool.
type WriteFileArgs struct {
	Path    string `mapstructure:"path"`
	Content string `mapstructure:"content"`
}

// WriteFileOutput is the result of the write_file tool.
type WriteFileOutput struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
}

// SearchTextArgs are the arguments of the search_text tool.
type SearchTextArgs struct {
	Query      string `mapstructure:"query"`
	Path       string `mapstructure:"path"`
	MaxResults int    `mapstructure:"max_results"`
}

// SearchMatch is one matching line.
type SearchMatch struct {
	Path       string `json:"path"`
	LineNumber int    `json:"line_number"`
	Line       string `json:"line"`
}

// SearchTextOutput is the result of the search_text tool.
type SearchTextOutput struct {
	Query     string        `json:"query"`
	Matches   []SearchMatch `json:"matches"`
	Truncated bool          `json:"truncated"`
}

// RunCommandArgs are the arguments of the run_cmd tool.
type RunCommandArgs struct {
	Command string `mapstructure:"command"`
}

// RunCommandOutput is the result of the run_cmd tool. ApprovedBy, ExitCode
// and DurationMS feed the caller's audit record.
type RunCommandOutput struct {
	Command    string `json:"command"`
	Cwd        string `json:"cwd"`
	ApprovedBy string `json:"approved_by"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
}

// Duration converts DurationMS back to a time.Duration for audit records.
func (o RunCommandOutput) Duration() time.Duration {
	return time.Duration(o.DurationMS) * time.Millisecond
}
