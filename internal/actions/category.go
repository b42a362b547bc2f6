package actions

import (
	"regexp"
	"strings"

	"github.com/dotcommander/goodvibes/internal/models"
)

type categoryRule struct {
	category models.ErrorCategory
	re       *regexp.Regexp
}

// errorTextRules are checked in order; the first match wins. Narrow tool
// families (git, npm, tsc) come before the broad build and test buckets.
//
//nolint:gochecknoglobals // precompiled lookup table
var errorTextRules = []categoryRule{
	{models.CategoryGitConflict, regexp.MustCompile(`(?i)merge conflict|CONFLICT \(|\[rejected\]|non-fast-forward|detached HEAD|not a git repository|fatal: .*\bgit\b`)},
	{models.CategoryNpmInstall, regexp.MustCompile(`(?i)npm ERR!|ERESOLVE|peer dep|EINTEGRITY|lockfile|pnpm ERR|yarn error|could not resolve dependency`)},
	{models.CategoryTypeScriptError, regexp.MustCompile(`(?i)\bTS\d{4}\b|error TS|tsconfig|is not assignable to type|Property '.+' does not exist on type`)},
	{models.CategoryDatabaseError, regexp.MustCompile(`(?i)ECONNREFUSED.*(5432|3306|27017|6379)|prisma|migration|constraint|duplicate key|relation ".+" does not exist|SQLITE_|database`)},
	{models.CategoryAPIError, regexp.MustCompile(`(?i)(status|code|HTTP)\W{0,3}(401|403|429|500|502|503|504)\b|ETIMEDOUT|ENOTFOUND|ECONNRESET|fetch failed|rate limit|unauthorized|socket hang up`)},
	{models.CategoryTestFailure, regexp.MustCompile(`(?i)\bFAIL\b|tests? failed|AssertionError|expect\(|toMatchSnapshot|snapshot|--- FAIL|Timeout - Async`)},
	{models.CategoryFileNotFound, regexp.MustCompile(`(?i)ENOENT|no such file or directory|file not found|does not exist|cannot find the path`)},
	{models.CategoryBuildFailure, regexp.MustCompile(`(?i)build failed|compilation failed|webpack|vite|esbuild|rollup|SyntaxError|cannot find module|module not found`)},
}

// commandRules map the Bash command that failed to a category when the
// error text alone is not decisive.
//
//nolint:gochecknoglobals // precompiled lookup table
var commandRules = []categoryRule{
	{models.CategoryNpmInstall, regexp.MustCompile(`^(npm|pnpm|yarn|bun) (i|install|add|ci)\b`)},
	{models.CategoryTypeScriptError, regexp.MustCompile(`\btsc\b|type-?check`)},
	{models.CategoryTestFailure, regexp.MustCompile(`\b(test|jest|vitest|mocha|pytest|playwright)\b`)},
	{models.CategoryBuildFailure, regexp.MustCompile(`\b(build|compile|make)\b`)},
	{models.CategoryGitConflict, regexp.MustCompile(`^git\b`)},
}

// ClassifyCategory assigns the coarse category used for retry budgets from
// the failing tool, its command (Bash only) and the error text.
func ClassifyCategory(toolName, command, errorText string) models.ErrorCategory {
	for _, r := range errorTextRules {
		if r.re.MatchString(errorText) {
			return r.category
		}
	}

	if strings.EqualFold(toolName, "Bash") {
		cmd := strings.TrimSpace(command)
		for _, r := range commandRules {
			if r.re.MatchString(cmd) {
				return r.category
			}
		}
	}

	switch toolName {
	case "Read", "Edit", "MultiEdit", "Write", "NotebookEdit", "Glob":
		return models.CategoryFileNotFound
	case "WebFetch", "WebSearch":
		return models.CategoryAPIError
	}
	return models.CategoryUnknown
}
