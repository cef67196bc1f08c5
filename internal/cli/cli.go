// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/appver/appver/internal/asar"
	"github.com/appver/appver/internal/config"
	"github.com/appver/appver/internal/diff"
	"github.com/appver/appver/internal/history"
	"github.com/appver/appver/internal/inspect"
	"github.com/appver/appver/internal/pkginfo"
	"github.com/fatih/color"
)

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	ConfigPath() string
	DefaultConfig() *config.Config
}

// InspectService provides version probe operations for the CLI.
type InspectService interface {
	Probe(cfg *config.Config, path string, opts inspect.Options) (*inspect.Result, error)
}

// HistoryService provides inspection history operations for the CLI.
type HistoryService interface {
	Load(historyDir, archivePath string) (*history.History, error)
	ListArchives(historyDir string) ([]string, error)
}

// ArchiveEntry is one row of an archive listing.
type ArchiveEntry struct {
	Path     string
	Dir      bool
	Link     string
	Size     uint64
	Unpacked bool
}

// ArchiveService provides raw archive operations for the CLI.
type ArchiveService interface {
	// List returns the archive's entries, the full tree when all is
	// set and only the top level otherwise.
	List(path string, all bool) ([]ArchiveEntry, error)

	// Read returns the raw bytes of an entry, using the flat top-level
	// lookup unless nested is set.
	Read(path, entry string, nested bool) ([]byte, error)

	// Compare compares the entry trees of two archives.
	Compare(path1, path2 string) (*diff.Result, error)

	// CompareEntry computes the line diff of one entry between two
	// archives, using the status codes from Compare.
	CompareEntry(path1, path2, entryPath string, status rune) (*diff.FileResult, error)
}

// PackageInfoService provides PackageInfo XML lookups for the CLI.
type PackageInfoService interface {
	Find(path, key string) (string, error)
}

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Injectable dependencies (nil means use defaults)
	ConfigSvc  ConfigService
	InspectSvc InspectService
	HistorySvc HistoryService
	ArchiveSvc ArchiveService
	PkgInfoSvc PackageInfoService

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	exitCode := 0
	return &CLI{
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Exit:    func(code int) { exitCode = code; _ = exitCode },
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		gray:    noColor,
		red:     noColor,
	}
}

// defaultConfigService wraps the config package functions.
type defaultConfigService struct{}

func (d *defaultConfigService) Load() (*config.Config, error) { return config.Load() }
func (d *defaultConfigService) Save(cfg *config.Config) error { return cfg.Save() }
func (d *defaultConfigService) ConfigPath() string            { return config.ConfigPath() }
func (d *defaultConfigService) DefaultConfig() *config.Config { return config.DefaultConfig() }

// defaultInspectService wraps the inspect package functions.
type defaultInspectService struct{}

func (d *defaultInspectService) Probe(cfg *config.Config, path string, opts inspect.Options) (*inspect.Result, error) {
	return inspect.Probe(cfg, path, opts)
}

// defaultHistoryService wraps the history package functions.
type defaultHistoryService struct{}

func (d *defaultHistoryService) Load(historyDir, archivePath string) (*history.History, error) {
	return history.Load(historyDir, archivePath)
}
func (d *defaultHistoryService) ListArchives(historyDir string) ([]string, error) {
	return history.ListArchives(historyDir)
}

// defaultArchiveService reads archives through the asar and diff packages.
type defaultArchiveService struct{}

func (d *defaultArchiveService) List(path string, all bool) ([]ArchiveEntry, error) {
	a, err := asar.Open(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	var entries []ArchiveEntry
	err = a.Root().Walk(func(p string, e *asar.Entry) error {
		if !all && strings.Contains(p, "/") {
			return nil
		}
		entries = append(entries, ArchiveEntry{
			Path:     p,
			Dir:      e.IsDir(),
			Link:     e.Link,
			Size:     e.Size,
			Unpacked: e.Unpacked,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (d *defaultArchiveService) Read(path, entry string, nested bool) ([]byte, error) {
	a, err := asar.Open(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	if nested {
		return a.ReadPath(entry)
	}
	return a.Read(entry)
}

func (d *defaultArchiveService) Compare(path1, path2 string) (*diff.Result, error) {
	return diff.Compare(path1, path2)
}

func (d *defaultArchiveService) CompareEntry(path1, path2, entryPath string, status rune) (*diff.FileResult, error) {
	return diff.CompareFile(path1, path2, entryPath, status)
}

// defaultPackageInfoService wraps the pkginfo package functions.
type defaultPackageInfoService struct{}

func (d *defaultPackageInfoService) Find(path, key string) (string, error) {
	return pkginfo.FindFile(path, key)
}

// Helper methods to get the service or default
func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{}
}

func (c *CLI) inspectSvc() InspectService {
	if c.InspectSvc != nil {
		return c.InspectSvc
	}
	return &defaultInspectService{}
}

func (c *CLI) historySvc() HistoryService {
	if c.HistorySvc != nil {
		return c.HistorySvc
	}
	return &defaultHistoryService{}
}

func (c *CLI) archiveSvc() ArchiveService {
	if c.ArchiveSvc != nil {
		return c.ArchiveSvc
	}
	return &defaultArchiveService{}
}

func (c *CLI) pkgInfoSvc() PackageInfoService {
	if c.PkgInfoSvc != nil {
		return c.PkgInfoSvc
	}
	return &defaultPackageInfoService{}
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	if len(c.Args) < 2 {
		// No command - would launch TUI, but we skip that for CLI testing
		fmt.Fprintln(c.Out, "No command specified. Use 'appver help' for usage.")
		return
	}

	switch c.Args[1] {
	case "get":
		c.RunGet()
	case "ls":
		c.RunList()
	case "cat":
		c.RunCat()
	case "diff":
		c.RunDiff()
	case "pkginfo":
		c.RunPkgInfo()
	case "history":
		c.ShowHistory()
	case "init":
		c.InitConfig()
	case "status":
		c.ShowStatus()
	case "version", "-v", "--version":
		fmt.Fprintf(c.Out, "appver v%s\n", c.Version)
	case "help", "-h", "--help":
		c.PrintUsage()
	default:
		fmt.Fprintf(c.Err, "Unknown command: %s\n", c.Args[1])
		c.PrintUsage()
		c.Exit(1)
	}
}

// PrintUsage prints the help message.
func (c *CLI) PrintUsage() {
	fmt.Fprintln(c.Out, `appver - Version reader for packaged desktop apps

Usage:
  appver ui <archive>                      Browse an asar archive interactively
  appver get <archive> [flags]             Extract the version from an archive
      --entry=NAME                         Entry holding the version document (default package.json)
      --key=KEY                            Document key to read (default version)
      --nested                             Treat the entry name as a nested path
      --skip-single-root-dir               Look through a zip's single root directory
      --track                              Record the probe in history
      --json                               Print the full result as JSON
  appver ls <archive> [--all]              List archive entries (--all recurses)
  appver cat <archive> <entry> [--nested]  Print an entry's raw bytes
  appver diff <archive1> <archive2> [entry]
                                           Compare two archives, or one entry line by line
  appver pkginfo <file> <key>              Read a value from a PackageInfo XML file
  appver history [archive]                 Show recorded probes (or all tracked archives)
  appver init                              Create default config file
  appver status                            Show configuration paths
  appver version, -v                       Show version
  appver help, -h                          Show this help

Archive paths may pass through containers, e.g. /dl/App.zip/App.app/Contents/Resources/app.asar

Config: ~/.appver/config.yaml`)
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() {
	svc := c.configSvc()
	cfg := svc.DefaultConfig()
	if err := svc.Save(cfg); err != nil {
		fmt.Fprintf(c.Err, "Error saving config: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", svc.ConfigPath())
}

// RunGet extracts the version value from an archive.
func (c *CLI) RunGet() {
	if len(c.Args) < 3 {
		fmt.Fprintln(c.Out, "Usage: appver get <archive> [--entry=NAME] [--key=KEY] [--nested] [--skip-single-root-dir] [--track] [--json]")
		c.Exit(1)
		return
	}

	cfgSvc := c.configSvc()
	inspectSvc := c.inspectSvc()

	cfg, err := cfgSvc.Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}

	path := c.Args[2]
	var opts inspect.Options
	asJSON := false

	for _, arg := range c.Args[3:] {
		switch {
		case strings.HasPrefix(arg, "--entry="):
			opts.Entry = strings.TrimPrefix(arg, "--entry=")
		case strings.HasPrefix(arg, "--key="):
			opts.Key = strings.TrimPrefix(arg, "--key=")
		case arg == "--nested":
			opts.Nested = true
		case arg == "--skip-single-root-dir":
			opts.SkipSingleRootDir = true
		case arg == "--track":
			cfg.Track = true
		case arg == "--json":
			asJSON = true
		default:
			fmt.Fprintf(c.Err, "Unknown flag: %s\n", arg)
			c.Exit(1)
			return
		}
	}

	result, err := inspectSvc.Probe(cfg, path, opts)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	if asJSON {
		out, err := json.MarshalIndent(map[string]any{
			"path":          result.Path,
			"resolved_path": result.ResolvedPath,
			"entry":         result.Entry,
			"key":           result.Key,
			"version":       result.Version,
			"sha256":        result.SHA256,
			"size_bytes":    result.Size,
			"inspected_at":  result.InspectedAt,
			"recorded":      result.Recorded,
		}, "", "  ")
		if err != nil {
			fmt.Fprintf(c.Err, "Error: %v\n", err)
			c.Exit(1)
			return
		}
		fmt.Fprintln(c.Out, string(out))
		return
	}

	fmt.Fprintf(c.Out, "Found version %s in file %s\n", c.green(result.Version), result.Entry)
	if result.Recorded {
		fmt.Fprintf(c.Out, "%s\n", c.gray("(recorded to history)"))
	}
}

// RunList lists the entries of an archive.
func (c *CLI) RunList() {
	if len(c.Args) < 3 {
		fmt.Fprintln(c.Out, "Usage: appver ls <archive> [--all]")
		c.Exit(1)
		return
	}

	path := c.Args[2]
	all := false
	for _, arg := range c.Args[3:] {
		if arg == "--all" {
			all = true
		}
	}

	entries, err := c.archiveSvc().List(path, all)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	fmt.Fprintf(c.Out, "Entries in %s:\n\n", c.cyan(path))
	fmt.Fprintf(c.Out, "  %10s  %s\n", "SIZE", "NAME")
	fmt.Fprintf(c.Out, "  %10s  %s\n", "----", "----")

	files := 0
	var total uint64
	for _, e := range entries {
		switch {
		case e.Dir:
			fmt.Fprintf(c.Out, "  %10s  %s\n", "-", c.cyan(e.Path+"/"))
		case e.Link != "":
			fmt.Fprintf(c.Out, "  %10s  %s %s\n", "-", e.Path, c.gray("-> "+e.Link))
		default:
			note := ""
			if e.Unpacked {
				note = " " + c.gray("(unpacked)")
			}
			fmt.Fprintf(c.Out, "  %10s  %s%s\n", c.yellow(inspect.FormatSize(int64(e.Size))), e.Path, note)
			files++
			total += e.Size
		}
	}

	fmt.Fprintln(c.Out)
	fmt.Fprintf(c.Out, "%s files, %s\n",
		c.green(fmt.Sprintf("%d", files)),
		c.yellow(inspect.FormatSize(int64(total))))
}

// RunCat prints the raw bytes of an archive entry.
func (c *CLI) RunCat() {
	if len(c.Args) < 4 {
		fmt.Fprintln(c.Out, "Usage: appver cat <archive> <entry> [--nested]")
		c.Exit(1)
		return
	}

	path := c.Args[2]
	entry := c.Args[3]
	nested := false
	for _, arg := range c.Args[4:] {
		if arg == "--nested" {
			nested = true
		}
	}

	data, err := c.archiveSvc().Read(path, entry, nested)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	if _, err := c.Out.Write(data); err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
	}
}

// RunDiff compares two archives, or one entry between them.
func (c *CLI) RunDiff() {
	if len(c.Args) < 4 {
		fmt.Fprintln(c.Out, "Usage: appver diff <archive1> <archive2> [entry]")
		c.Exit(1)
		return
	}

	path1, path2 := c.Args[2], c.Args[3]
	svc := c.archiveSvc()

	if len(c.Args) > 4 {
		c.runEntryDiff(svc, path1, path2, c.Args[4])
		return
	}

	result, err := svc.Compare(path1, path2)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	fmt.Fprintf(c.Out, "Diff: %s vs %s\n\n", c.cyan(path1), c.cyan(path2))
	fmt.Fprintf(c.Out, "  Modified: %d   Added: %d   Deleted: %d\n\n",
		result.Modified, result.Added, result.Deleted)

	if len(result.Changes) == 0 {
		fmt.Fprintln(c.Out, "  No differences found")
		return
	}

	for _, ch := range result.Changes {
		switch ch.Status {
		case 'M':
			fmt.Fprintf(c.Out, "  %s %s %s\n", c.yellow("M"), ch.Path,
				c.gray(fmt.Sprintf("(%s -> %s)",
					inspect.FormatSize(int64(ch.Size1)), inspect.FormatSize(int64(ch.Size2)))))
		case 'A':
			fmt.Fprintf(c.Out, "  %s %s %s\n", c.green("A"), ch.Path,
				c.gray("("+inspect.FormatSize(int64(ch.Size2))+")"))
		case 'D':
			fmt.Fprintf(c.Out, "  %s %s %s\n", c.red("D"), ch.Path,
				c.gray("("+inspect.FormatSize(int64(ch.Size1))+")"))
		}
	}
}

// runEntryDiff prints the line diff of one entry between two archives.
func (c *CLI) runEntryDiff(svc ArchiveService, path1, path2, entryPath string) {
	// Status decides which sides are read; derive it from the tree diff.
	status := rune('M')
	if result, err := svc.Compare(path1, path2); err == nil {
		for _, ch := range result.Changes {
			if ch.Path == entryPath {
				status = ch.Status
				break
			}
		}
	}

	fileResult, err := svc.CompareEntry(path1, path2, entryPath, status)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	if fileResult.Error != "" {
		fmt.Fprintf(c.Err, "Error: %s\n", fileResult.Error)
		c.Exit(1)
		return
	}
	if fileResult.IsBinary {
		fmt.Fprintf(c.Out, "Binary entry %s differs\n", entryPath)
		return
	}
	if len(fileResult.Lines) == 0 {
		fmt.Fprintf(c.Out, "No differences in %s\n", entryPath)
		return
	}

	fmt.Fprintf(c.Out, "--- %s %s\n", path1, c.gray(entryPath))
	fmt.Fprintf(c.Out, "+++ %s %s\n", path2, c.gray(entryPath))
	for _, line := range fileResult.Lines {
		switch line.Type {
		case '+':
			fmt.Fprintf(c.Out, "%s\n", c.green("+"+line.Content))
		case '-':
			fmt.Fprintf(c.Out, "%s\n", c.red("-"+line.Content))
		default:
			fmt.Fprintf(c.Out, " %s\n", line.Content)
		}
	}
}

// RunPkgInfo reads a value from a PackageInfo XML file.
func (c *CLI) RunPkgInfo() {
	if len(c.Args) < 4 {
		fmt.Fprintln(c.Out, "Usage: appver pkginfo <file> <key>")
		c.Exit(1)
		return
	}

	value, err := c.pkgInfoSvc().Find(c.Args[2], c.Args[3])
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintln(c.Out, value)
}

// ShowHistory prints the recorded probes for an archive, or the list
// of tracked archives when no path is given.
func (c *CLI) ShowHistory() {
	cfgSvc := c.configSvc()
	historySvc := c.historySvc()

	cfg, err := cfgSvc.Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}
	historyDir := config.ExpandPath(cfg.HistoryDir)

	if len(c.Args) < 3 {
		archives, err := historySvc.ListArchives(historyDir)
		if err != nil {
			fmt.Fprintf(c.Err, "Error: %v\n", err)
			c.Exit(1)
			return
		}
		if len(archives) == 0 {
			fmt.Fprintln(c.Out, "No tracked archives. Use 'appver get <archive> --track' to start.")
			return
		}
		fmt.Fprintln(c.Out, "Tracked archives:")
		for _, a := range archives {
			fmt.Fprintf(c.Out, "  %s\n", a)
		}
		return
	}

	path := c.Args[2]
	h, err := historySvc.Load(historyDir, path)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	if len(h.Records) == 0 {
		fmt.Fprintf(c.Out, "No history for %s\n", path)
		return
	}

	fmt.Fprintf(c.Out, "History for %s:\n\n", c.cyan(path))
	fmt.Fprintf(c.Out, "  %-16s %-14s %10s  %s\n", "WHEN", "VERSION", "SIZE", "SHA256")
	fmt.Fprintf(c.Out, "  %-16s %-14s %10s  %s\n", "----", "-------", "----", "------")

	for i := len(h.Records) - 1; i >= 0; i-- {
		r := h.Records[i]
		sum := r.SHA256
		if len(sum) > 12 {
			sum = sum[:12]
		}
		fmt.Fprintf(c.Out, "  %-16s %-14s %10s  %s\n",
			r.InspectedAt.Format("2006-01-02 15:04"),
			r.Version,
			inspect.FormatSize(r.SizeBytes),
			c.gray(sum))
	}
}

// ShowStatus shows the current configuration.
func (c *CLI) ShowStatus() {
	cfgSvc := c.configSvc()

	cfg, err := cfgSvc.Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}

	entry := cfg.DefaultEntry
	if entry == "" {
		entry = inspect.DefaultEntry
	}
	key := cfg.DefaultKey
	if key == "" {
		key = inspect.DefaultKey
	}

	fmt.Fprintln(c.Out, "appver status:")
	fmt.Fprintf(c.Out, "  Config:   %s\n", cfgSvc.ConfigPath())
	fmt.Fprintf(c.Out, "  Entry:    %s\n", entry)
	fmt.Fprintf(c.Out, "  Key:      %s\n", key)
	fmt.Fprintf(c.Out, "  History:  %s\n", config.ExpandPath(cfg.HistoryDir))
	if cfg.Track {
		fmt.Fprintf(c.Out, "  Tracking: %s\n", c.green("on"))
	} else {
		fmt.Fprintf(c.Out, "  Tracking: %s\n", c.gray("off"))
	}
}
