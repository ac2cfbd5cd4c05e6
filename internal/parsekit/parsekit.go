// Package parsekit provides reusable primitives for parsing checker input
// files: logs, timing/QoR reports, and similar line-oriented text. The
// primitives mirror a small, fixed set of parsing shapes — pattern search,
// keyword search, metric extraction, file-reference extraction,
// section parsing, command-block parsing, chained lookups and plain
// counting — that recur across unrelated checker implementations.
//
// Each function reads its own input rather than sharing scanner state: a
// checker typically runs only one or two of these per item, so the
// simplicity of a fresh read outweighs the cost of re-scanning.
package parsekit

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Match records where a single finding occurred in an input file.
type Match struct {
	LineNumber    int
	FilePath      string
	LineContent   string
	ExtractedPath string
}

// ReadLines reads path and splits it into lines, tolerating files with
// invalid UTF-8 the way Python's errors="ignore" does: bufio.Scanner
// operates on raw bytes and never rejects a line for encoding reasons.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from validated ItemConfig.InputFiles
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// compilePatterns compiles every pattern up front so a malformed pattern is
// reported before any scanning happens, the same fail-fast stance
// internal/grok.New takes for grok pattern strings.
func compilePatterns(patterns map[string]string, caseSensitive bool) (map[string]*regexp.Regexp, error) {
	compiled := make(map[string]*regexp.Regexp, len(patterns))
	for name, pattern := range patterns {
		p := pattern
		if !caseSensitive {
			p = "(?i)" + p
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %q for %q: %w", pattern, name, err)
		}
		compiled[name] = re
	}
	return compiled, nil
}

// PatternResult is the outcome of ParseLogWithPatterns.
type PatternResult struct {
	Found   map[string]Match
	Missing []string
}

// ParseLogWithPatterns searches logFile for the first line matching each
// named pattern. A pattern already found is skipped on later lines — the
// first match wins, as in the source this is ported from.
func ParseLogWithPatterns(logFile string, patterns map[string]string, requiredItems []string, extractPaths, caseSensitive bool) (*PatternResult, error) {
	if requiredItems == nil {
		requiredItems = make([]string, 0, len(patterns))
		for name := range patterns {
			requiredItems = append(requiredItems, name)
		}
	}

	compiled, err := compilePatterns(patterns, caseSensitive)
	if err != nil {
		return nil, err
	}

	lines, err := ReadLines(logFile)
	if err != nil {
		return nil, err
	}

	found := make(map[string]Match)
	for lineNum, line := range lines {
		for name, re := range compiled {
			if _, ok := found[name]; ok {
				continue
			}
			if re.MatchString(line) {
				m := Match{
					LineNumber:  lineNum + 1,
					FilePath:    logFile,
					LineContent: strings.TrimSpace(line),
				}
				if extractPaths {
					m.ExtractedPath = extractFilePathFromLine(line)
				}
				found[name] = m
			}
		}
	}

	var missing []string
	for _, item := range requiredItems {
		if _, ok := found[item]; !ok {
			missing = append(missing, item)
		}
	}

	return &PatternResult{Found: found, Missing: missing}, nil
}

var fileExtPattern = regexp.MustCompile(`(?i)(\S+\.(?:rpt|log|tarpt|gz|yaml|json|txt|csv))`)
var quotedPathPattern = regexp.MustCompile(`(?i)["']([^"']+\.[a-z]+)["']`)

// extractFilePathFromLine pulls a file path out of a log line, trying in
// order: text after the last '>', text after the first ':' that looks like
// a path, a quoted path, then any token with a known report extension.
func extractFilePathFromLine(line string) string {
	line = strings.TrimSpace(line)

	if idx := strings.LastIndex(line, ">"); idx != -1 {
		path := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		if path != "" {
			return path
		}
	}

	if idx := strings.Index(line, ":"); idx != -1 {
		rest := strings.TrimSpace(line[idx+1:])
		if strings.ContainsAny(rest, `/\`) {
			path := rest
			if sp := strings.IndexByte(rest, ' '); sp != -1 {
				path = rest[:sp]
			}
			path = strings.Trim(path, `"'`)
			if looksLikeFilePath(path) {
				return path
			}
		}
	}

	if m := quotedPathPattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := fileExtPattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

var reportExtensions = []string{".rpt", ".log", ".tarpt", ".gz", ".yaml", ".json", ".txt", ".csv"}

// looksLikeFilePath reports whether text resembles a file path: it must
// contain a path separator, and either ends in a known report extension or
// has more than one path component.
func looksLikeFilePath(text string) bool {
	if !strings.ContainsAny(text, `/\`) {
		return false
	}
	lower := strings.ToLower(text)
	for _, ext := range reportExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	parts := strings.Split(strings.ReplaceAll(text, `\`, "/"), "/")
	return len(parts) > 1
}

var braceOpenSpaces = regexp.MustCompile(`\{\s+`)
var braceCloseSpaces = regexp.MustCompile(`\s+\}`)
var multiSpace = regexp.MustCompile(`\s+`)

// NormalizeCommand collapses a command string into a canonical form for
// stable comparisons: "{ CLOCK }" becomes "{CLOCK}" and runs of whitespace
// collapse to a single space.
func NormalizeCommand(cmd string) string {
	normalized := braceOpenSpaces.ReplaceAllString(cmd, "{")
	normalized = braceCloseSpaces.ReplaceAllString(normalized, "}")
	normalized = multiSpace.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// KeywordMatch is one occurrence of a keyword, with optional surrounding
// context lines.
type KeywordMatch struct {
	LineNumber    int
	LineContent   string
	ContextBefore []string
	ContextAfter  []string
}

// ParseLogWithKeywords finds every line containing any of keywords
// (substring match, not regex), optionally attaching contextLines of
// surrounding text to each hit.
func ParseLogWithKeywords(logFile string, keywords []string, contextLines int, caseSensitive bool) (map[string][]KeywordMatch, int, error) {
	lines, err := ReadLines(logFile)
	if err != nil {
		return nil, 0, err
	}

	matches := make(map[string][]KeywordMatch, len(keywords))
	for _, kw := range keywords {
		matches[kw] = nil
	}
	total := 0

	for i, line := range lines {
		lineNum := i + 1
		checkLine := line
		if !caseSensitive {
			checkLine = strings.ToLower(line)
		}
		for _, kw := range keywords {
			checkKw := kw
			if !caseSensitive {
				checkKw = strings.ToLower(kw)
			}
			if !strings.Contains(checkLine, checkKw) {
				continue
			}
			var before, after []string
			if contextLines > 0 {
				start := i - contextLines
				if start < 0 {
					start = 0
				}
				before = append([]string(nil), lines[start:i]...)
				end := i + 1 + contextLines
				if end > len(lines) {
					end = len(lines)
				}
				after = append([]string(nil), lines[i+1:end]...)
			}
			matches[kw] = append(matches[kw], KeywordMatch{
				LineNumber:    lineNum,
				LineContent:   strings.TrimSpace(line),
				ContextBefore: before,
				ContextAfter:  after,
			})
			total++
		}
	}

	return matches, total, nil
}

// Metric is a single extracted numeric (or unparsed) value.
type Metric struct {
	Value       string
	Numeric     float64
	IsNumeric   bool
	LineNumber  int
	LineContent string
}

// ExtractMetrics pulls the first capture group of each named pattern out of
// logFile, converting to float64 where possible.
func ExtractMetrics(logFile string, metricPatterns map[string]string) (map[string]Metric, []string, error) {
	compiled, err := compilePatterns(metricPatterns, false)
	if err != nil {
		return nil, nil, err
	}
	lines, err := ReadLines(logFile)
	if err != nil {
		return nil, nil, err
	}

	metrics := make(map[string]Metric)
	for lineNum, line := range lines {
		for name, re := range compiled {
			if _, ok := metrics[name]; ok {
				continue
			}
			m := re.FindStringSubmatch(line)
			if m == nil || len(m) < 2 {
				continue
			}
			metric := Metric{Value: m[1], LineNumber: lineNum + 1, LineContent: strings.TrimSpace(line)}
			if f, err := strconv.ParseFloat(m[1], 64); err == nil {
				metric.Numeric = f
				metric.IsNumeric = true
			}
			metrics[name] = metric
		}
	}

	var missing []string
	for name := range metricPatterns {
		if _, ok := metrics[name]; !ok {
			missing = append(missing, name)
		}
	}
	return metrics, missing, nil
}

var defaultFileRefPattern = regexp.MustCompile(`(?i)([A-Za-z0-9._/\\-]+\.[a-z]{2,5})`)

// FileReference records one file path found by ExtractFileReferences.
type FileReference struct {
	LineNumber  int
	FilePath    string
	LineContent string
}

// ExtractFileReferences scans logFile for file-like tokens, either matching
// one of extensions, a customPattern, or (with both empty) any short
// alphanumeric token ending in a two-to-five letter extension. Order of
// first appearance is preserved; duplicates are dropped.
func ExtractFileReferences(logFile string, extensions []string, customPattern string) ([]string, map[string]FileReference, error) {
	var pattern *regexp.Regexp
	switch {
	case customPattern != "":
		re, err := regexp.Compile("(?i)" + customPattern)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to compile custom pattern %q: %w", customPattern, err)
		}
		pattern = re
	case len(extensions) > 0:
		escaped := make([]string, len(extensions))
		for i, ext := range extensions {
			escaped[i] = regexp.QuoteMeta(strings.TrimPrefix(ext, "."))
		}
		re, err := regexp.Compile(`(?i)([A-Za-z0-9._/\\-]+\.(?:` + strings.Join(escaped, "|") + `))`)
		if err != nil {
			return nil, nil, err
		}
		pattern = re
	default:
		pattern = defaultFileRefPattern
	}

	lines, err := ReadLines(logFile)
	if err != nil {
		return nil, nil, err
	}

	var files []string
	seen := make(map[string]bool)
	metadata := make(map[string]FileReference)

	for i, line := range lines {
		for _, m := range pattern.FindAllString(line, -1) {
			ref := strings.Trim(m, `[](){}",;`)
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			files = append(files, ref)
			metadata[ref] = FileReference{LineNumber: i + 1, FilePath: logFile, LineContent: strings.TrimSpace(line)}
		}
	}

	return files, metadata, nil
}

// Section is the outcome of ParseSection.
type Section struct {
	Found    bool
	Items    []string
	Metadata map[string]Match
	Start    int
	End      int
	Content  string
}

// ParseSection extracts the text between startMarker and endMarker (or to
// end of file if endMarker is empty), optionally pulling items out of each
// line in the section via itemPattern's first capture group.
func ParseSection(logFile, startMarker, endMarker, itemPattern string, stopOnEmptyLine, caseSensitive bool) (*Section, error) {
	lines, err := ReadLines(logFile)
	if err != nil {
		return nil, err
	}

	flag := "(?i)"
	if caseSensitive {
		flag = ""
	}
	startRe, err := regexp.Compile(flag + startMarker)
	if err != nil {
		return nil, fmt.Errorf("invalid start_marker %q: %w", startMarker, err)
	}
	var endRe *regexp.Regexp
	if endMarker != "" {
		endRe, err = regexp.Compile(flag + endMarker)
		if err != nil {
			return nil, fmt.Errorf("invalid end_marker %q: %w", endMarker, err)
		}
	}
	var itemRe *regexp.Regexp
	if itemPattern != "" {
		itemRe, err = regexp.Compile(flag + itemPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid item_pattern %q: %w", itemPattern, err)
		}
	}

	sec := &Section{Metadata: make(map[string]Match)}
	inSection := false
	var sectionLines []string

	for i, line := range lines {
		lineNum := i + 1
		if !inSection {
			if startRe.MatchString(line) {
				inSection = true
				sec.Start = lineNum
				sectionLines = append(sectionLines, line)
			}
			continue
		}

		if endRe != nil && endRe.MatchString(line) {
			sec.End = lineNum
			sectionLines = append(sectionLines, line)
			break
		}
		if stopOnEmptyLine && strings.TrimSpace(line) == "" {
			sec.End = lineNum
			break
		}
		sectionLines = append(sectionLines, line)

		if itemRe != nil {
			for _, m := range itemRe.FindAllStringSubmatch(line, -1) {
				item := m[0]
				if len(m) > 1 {
					item = m[1]
				}
				if _, ok := sec.Metadata[item]; ok {
					continue
				}
				sec.Items = append(sec.Items, item)
				sec.Metadata[item] = Match{LineNumber: lineNum, FilePath: logFile, LineContent: strings.TrimSpace(line)}
			}
		}
	}

	sec.Found = sec.Start != 0
	if sec.End == 0 {
		sec.End = len(lines)
	}
	sec.Content = strings.Join(sectionLines, "\n")
	return sec, nil
}

// CommandBlock is one block extracted by ExtractCommandBlocks.
type CommandBlock struct {
	Content   string
	LineStart int
	Params    map[string]string
}

// ExtractCommandBlocks finds every occurrence of command in logFile and
// captures the text up to the next blockDelimiter (or end of file),
// optionally pulling named "-flag value" parameters out of each block.
func ExtractCommandBlocks(logFile, command, blockDelimiter string, extractParams []string) ([]CommandBlock, error) {
	if blockDelimiter == "" {
		blockDelimiter = "@"
	}
	lines, err := ReadLines(logFile)
	if err != nil {
		return nil, err
	}
	content := strings.Join(lines, "\n")

	blockPattern := regexp.MustCompile(`(?is)` + regexp.QuoteMeta(command) + `[^` + regexp.QuoteMeta(blockDelimiter) + `]*?(?:` + regexp.QuoteMeta(blockDelimiter) + `|\z)`)
	rawBlocks := blockPattern.FindAllString(content, -1)

	blocks := make([]CommandBlock, 0, len(rawBlocks))
	for _, raw := range rawBlocks {
		block := CommandBlock{
			Content:   strings.TrimSpace(strings.TrimSuffix(raw, blockDelimiter)),
			LineStart: findLineNumber(lines, firstN(raw, 50)),
			Params:    make(map[string]string),
		}
		for _, param := range extractParams {
			re, err := regexp.Compile(regexp.QuoteMeta(param) + `\s+(\S+)`)
			if err != nil {
				continue
			}
			if m := re.FindStringSubmatch(block.Content); m != nil {
				block.Params[param] = m[1]
			}
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func findLineNumber(lines []string, snippet string) int {
	for i, line := range lines {
		if strings.Contains(line, snippet) {
			return i + 1
		}
	}
	return 0
}

// CountPattern counts lines matching pattern in logFile, optionally
// returning each matching line.
func CountPattern(logFile, pattern string, caseSensitive, returnMatches bool) (int, []Match, error) {
	flag := "(?i)"
	if caseSensitive {
		flag = ""
	}
	re, err := regexp.Compile(flag + pattern)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}
	lines, err := ReadLines(logFile)
	if err != nil {
		return 0, nil, err
	}

	count := 0
	var matches []Match
	for i, line := range lines {
		if re.MatchString(line) {
			count++
			if returnMatches {
				matches = append(matches, Match{LineNumber: i + 1, FilePath: logFile, LineContent: strings.TrimSpace(line)})
			}
		}
	}
	return count, matches, nil
}

// ChainStage is one hop of a multi-stage lookup (spec: domain -> rc_corner
// -> qrc_tech style chains).
type ChainStage struct {
	InCommand    string
	MatchParam   string
	ExtractParam string
}

// ExtractChain walks initialValues through chainSpec, resolving each stage
// by finding a command block (across all logFiles) whose MatchParam equals
// the current value, then taking its ExtractParam as the next value. A
// value that cannot advance through every stage is omitted from the result.
func ExtractChain(logFiles []string, chainSpec []ChainStage, initialValues []string) (map[string]string, error) {
	results := make(map[string]string)

	for _, initial := range initialValues {
		current := initial
		for _, stage := range chainSpec {
			next := ""
			for _, logFile := range logFiles {
				blocks, err := ExtractCommandBlocks(logFile, stage.InCommand, "@", []string{stage.MatchParam, stage.ExtractParam})
				if err != nil {
					return nil, err
				}
				found := false
				for _, block := range blocks {
					if block.Params[stage.MatchParam] == current {
						next = block.Params[stage.ExtractParam]
						found = true
						break
					}
				}
				if found && next != "" {
					break
				}
			}
			if next == "" {
				current = ""
				break
			}
			current = next
		}
		if current != "" && current != initial {
			results[initial] = current
		}
	}

	return results, nil
}

// ExtractSimpleList returns each distinct non-empty line of logFile that
// doesn't match any skipPattern, optionally requiring a match against
// lineFilter. Both are unanchored, case-insensitive regular expressions.
func ExtractSimpleList(logFile string, skipPatterns []string, lineFilter string) ([]string, map[string]Match, error) {
	lines, err := ReadLines(logFile)
	if err != nil {
		return nil, nil, err
	}

	skipRes := make([]*regexp.Regexp, 0, len(skipPatterns))
	for _, p := range skipPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid skip pattern %q: %w", p, err)
		}
		skipRes = append(skipRes, re)
	}
	var filterRe *regexp.Regexp
	if lineFilter != "" {
		filterRe, err = regexp.Compile("(?i)" + lineFilter)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid line filter %q: %w", lineFilter, err)
		}
	}

	var items []string
	seen := make(map[string]bool)
	metadata := make(map[string]Match)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		skip := false
		for _, re := range skipRes {
			if re.MatchString(trimmed) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if filterRe != nil && !filterRe.MatchString(trimmed) {
			continue
		}
		if seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		items = append(items, trimmed)
		metadata[trimmed] = Match{LineNumber: i + 1, FilePath: logFile, LineContent: trimmed}
	}

	return items, metadata, nil
}
