package tool

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/Cyclone1070/opal/internal/errutil"
)

// skipDirs are never descended into regardless of gitignore contents.
var skipDirs = map[string]bool{
	".git":         true,
	"target":       true,
	"node_modules": true,
	".pnpm-store":  true,
}

func (e *Executor) searchText(args SearchTextArgs, tctx Context) (any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return nil, errutil.New(errutil.KindTool, "search_text requires a non-empty query")
	}

	root := tctx.Cwd
	if args.Path != "" {
		abs, err := e.resolvePath(tctx, args.Path)
		if err != nil {
			return nil, err
		}
		root = abs
	}

	maxResults := args.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	matchLine := matcherFor(args.Query)
	ignore := loadIgnoreMatcher(root)

	output := SearchTextOutput{Query: args.Query, Matches: []SearchMatch{}}
	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped rather than failing the search.
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if entry.IsDir() {
			if skipDirs[entry.Name()] || ignore(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || ignore(rel, false) {
			return nil
		}

		matches, scanErr := scanFile(path, rel, matchLine, maxResults-len(output.Matches))
		if scanErr != nil {
			return nil
		}
		output.Matches = append(output.Matches, matches...)
		if len(output.Matches) >= maxResults {
			output.Truncated = true
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return nil, errutil.Wrapf(errutil.KindIO, walkErr, "searching under %s", root)
	}
	return output, nil
}

// matcherFor treats the query as a regex when it compiles and as a literal
// substring otherwise.
func matcherFor(query string) func(string) bool {
	if re, err := regexp.Compile(query); err == nil {
		return re.MatchString
	}
	return func(line string) bool { return strings.Contains(line, query) }
}

func scanFile(path, rel string, matchLine func(string) bool, budget int) ([]SearchMatch, error) {
	if budget <= 0 {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, nil
	}

	var matches []SearchMatch
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 10<<20)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if matchLine(line) {
			matches = append(matches, SearchMatch{Path: filepath.ToSlash(rel), LineNumber: lineNumber, Line: line})
			if len(matches) >= budget {
				break
			}
		}
	}
	return matches, scanner.Err()
}

// loadIgnoreMatcher reads .gitignore at the search root if present. The
// returned function never ignores when no .gitignore exists.
func loadIgnoreMatcher(root string) func(rel string, isDir bool) bool {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return func(string, bool) bool { return false }
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	matcher := gitignore.NewMatcher(patterns)

	return func(rel string, isDir bool) bool {
		if rel == "." {
			return false
		}
		segments := strings.Split(filepath.ToSlash(rel), "/")
		return matcher.Match(segments, isDir)
	}
}
