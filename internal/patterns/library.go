package patterns

import "github.com/dotcommander/goodvibes/internal/models"

// Pattern category names used by the default library.
const (
	TypeScriptTypeError   = "typescript_type_error"
	TypeScriptConfigError = "typescript_config_error"
	TypeMismatch          = "type_mismatch"
	MissingImport         = "missing_import"
	ModuleNotFound        = "module_not_found"
	LintError             = "lint_error"
	TestFailure           = "test_failure"
	TestTimeout           = "test_timeout"
	SnapshotMismatch      = "snapshot_mismatch"
	BuildFailure          = "build_failure"
	CompilationError      = "compilation_error"
	NpmInstallError       = "npm_install_error"
	NpmPeerDependency     = "npm_peer_dependency"
	NpmLockfile           = "npm_lockfile"
	FileNotFound          = "file_not_found"
	PermissionDenied      = "permission_denied"
	GitConflict           = "git_conflict"
	GitPushRejected       = "git_push_rejected"
	GitDetachedHead       = "git_detached_head"
	DatabaseConnection    = "database_connection"
	DatabaseConstraint    = "database_constraint"
	DatabaseMigration     = "database_migration"
	APINetwork            = "api_network"
	APIAuth               = "api_auth"
	APIRateLimit          = "api_rate_limit"
	ResourceExhaustion    = "resource_exhaustion"
	SyntaxError           = "syntax_error"
)

// DefaultPatterns returns the built-in recovery library. Order matters: when
// several entries match, the earliest one wins.
func DefaultPatterns() []models.RecoveryPattern {
	return []models.RecoveryPattern{
		{
			Category:    TypeScriptTypeError,
			Description: "TypeScript type checking error",
			Patterns: []string{
				`error TS2\d{3}:`,
				`(?i)Property '[^']+' does not exist on type`,
				`(?i)Argument of type '[^']+' is not assignable to parameter of type`,
				`(?i)Object is possibly '(?:undefined|null)'`,
			},
			SuggestedFix: "Read the reported type, then fix the value or the declaration so they agree. Narrow nullable values with a guard instead of using a non-null assertion, and avoid `any` casts.",
			Severity:     models.SeverityMedium,
		},
		{
			Category:    TypeScriptConfigError,
			Description: "TypeScript compiler configuration problem",
			Patterns: []string{
				`error TS(?:5\d{3}|6\d{3}):`,
				`(?i)tsconfig\.json`,
				`(?i)Cannot find type definition file`,
			},
			SuggestedFix: "Check tsconfig.json: verify compilerOptions (module, moduleResolution, paths, types) and that every referenced file and @types package exists.",
			Severity:     models.SeverityHigh,
		},
		{
			Category:    TypeMismatch,
			Description: "Value type does not match the expected type",
			Patterns: []string{
				`(?i)Type '[^']+' is not assignable to type '[^']+'`,
				`(?i)type mismatch`,
				`(?i)cannot use .+ \(.*type .+\) as .+ (?:value|type)`,
				`(?i)expected .+, found .+`,
			},
			SuggestedFix: "Compare the expected and actual types at the reported location. Convert the value explicitly or update the signature; do not silence the checker.",
			Severity:     models.SeverityMedium,
		},
		{
			Category:    MissingImport,
			Description: "Symbol used without being imported or declared",
			Patterns: []string{
				`(?i)Cannot find name '[^']+'`,
				`(?i)is not defined`,
				`(?i)undefined: \w+`,
				`(?i)has no exported member`,
			},
			SuggestedFix: "Add the missing import or declaration. Check the exporting module for the exact symbol name and whether it is a default or named export.",
			Severity:     models.SeverityMedium,
		},
		{
			Category:    ModuleNotFound,
			Description: "Module or package cannot be resolved",
			Patterns: []string{
				`(?i)Cannot find module '[^']+'`,
				`(?i)Module not found`,
				`(?i)ERR_MODULE_NOT_FOUND`,
				`(?i)no required module provides package`,
			},
			SuggestedFix: "Install the missing package (npm install <pkg>), or fix the import path. For local modules verify the relative path and file extension.",
			Severity:     models.SeverityHigh,
		},
		{
			Category:    LintError,
			Description: "Linter rule violation",
			Patterns: []string{
				`(?i)eslint`,
				`(?i)\d+ problems? \(\d+ errors?`,
				`(?i)Parsing error:`,
				`(?i)prettier`,
			},
			SuggestedFix: "Run the linter with --fix first, then resolve the remaining rule violations by hand. Do not disable rules to make the error go away.",
			Severity:     models.SeverityLow,
		},
		{
			Category:    TestFailure,
			Description: "Test assertion failed",
			Patterns: []string{
				`(?m)^\s*FAIL\b`,
				`(?i)\d+ (?:tests? )?failed`,
				`(?i)AssertionError`,
				`(?i)expect\(.*\)\.to`,
				`--- FAIL:`,
			},
			SuggestedFix: "Read the assertion diff and decide whether the code or the test expectation is wrong. Run the single failing test in isolation before changing anything else.",
			Severity:     models.SeverityMedium,
		},
		{
			Category:    TestTimeout,
			Description: "Test exceeded its time limit",
			Patterns: []string{
				`(?i)Exceeded timeout of \d+ ?ms`,
				`(?i)test timed out`,
				`(?i)panic: test timed out`,
			},
			SuggestedFix: "Look for unresolved promises, missing awaits, open handles or real network calls in the test. Mock slow dependencies instead of raising the timeout.",
			Severity:     models.SeverityMedium,
		},
		{
			Category:    SnapshotMismatch,
			Description: "Snapshot does not match rendered output",
			Patterns: []string{
				`(?i)snapshots? (?:failed|obsolete)`,
				`(?i)toMatchSnapshot`,
				`(?i)Snapshot .* mismatched`,
			},
			SuggestedFix: "Review the snapshot diff. If the change is intended, update the snapshot (-u); otherwise fix the rendering change.",
			Severity:     models.SeverityLow,
		},
		{
			Category:    BuildFailure,
			Description: "Build tool reported a failure",
			Patterns: []string{
				`(?i)Build failed`,
				`(?i)webpack compiled with \d+ errors?`,
				`(?i)error during build`,
				`(?i)\[vite\].*error`,
			},
			SuggestedFix: "Find the first error in the build output; later errors are usually cascades. Fix it and rebuild before touching anything else.",
			Severity:     models.SeverityHigh,
		},
		{
			Category:    CompilationError,
			Description: "Compiler rejected the source",
			Patterns: []string{
				`(?i)compilation failed`,
				`(?i)failed to compile`,
				`(?i)# [\w./-]+\n`,
				`(?i)error\[E\d{4}\]`,
			},
			SuggestedFix: "Fix compiler errors in the order they are reported and recompile after each fix.",
			Severity:     models.SeverityHigh,
		},
		{
			Category:    NpmInstallError,
			Description: "npm install failed",
			Patterns: []string{
				`(?i)npm ERR!`,
				`(?i)npm error`,
				`(?i)ERR_PNPM_`,
				`(?i)gyp ERR!`,
			},
			SuggestedFix: "Clear the npm cache (npm cache clean --force), delete node_modules and reinstall. Check the Node version against the package engines field.",
			Severity:     models.SeverityHigh,
		},
		{
			Category:    NpmPeerDependency,
			Description: "Conflicting peer dependency versions",
			Patterns: []string{
				`(?i)ERESOLVE`,
				`(?i)peer dep(?:endency)?`,
				`(?i)Could not resolve dependency`,
			},
			SuggestedFix: "Align the conflicting package versions. Use --legacy-peer-deps only as a last resort and note why.",
			Severity:     models.SeverityMedium,
		},
		{
			Category:    NpmLockfile,
			Description: "Lockfile out of sync with package.json",
			Patterns: []string{
				`(?i)package-lock\.json`,
				`(?i)lockfile .*(?:out of date|needs to be updated)`,
				`(?i)npm ci can only install`,
			},
			SuggestedFix: "Regenerate the lockfile with npm install and commit it together with package.json.",
			Severity:     models.SeverityMedium,
		},
		{
			Category:    FileNotFound,
			Description: "File or directory does not exist",
			Patterns: []string{
				`ENOENT`,
				`(?i)no such file or directory`,
				`(?i)File not found`,
				`(?i)does not exist`,
			},
			SuggestedFix: "Verify the path: list the directory, check spelling and case, and confirm whether the file must be created first.",
			Severity:     models.SeverityMedium,
		},
		{
			Category:    PermissionDenied,
			Description: "Insufficient permissions",
			Patterns: []string{
				`EACCES`,
				`EPERM`,
				`(?i)permission denied`,
				`(?i)operation not permitted`,
			},
			SuggestedFix: "Check file ownership and mode. Do not use sudo inside the project; fix ownership of the directory instead.",
			Severity:     models.SeverityHigh,
		},
		{
			Category:    GitConflict,
			Description: "Merge conflict",
			Patterns: []string{
				`(?i)CONFLICT \(`,
				`(?i)Merge conflict`,
				`(?i)Automatic merge failed`,
				`(?m)^<<<<<<< `,
			},
			SuggestedFix: "List conflicted files with git status, resolve each conflict marker deliberately, then stage and continue the merge or rebase.",
			Severity:     models.SeverityHigh,
		},
		{
			Category:    GitPushRejected,
			Description: "Remote rejected the push",
			Patterns: []string{
				`(?i)\[rejected\]`,
				`(?i)failed to push some refs`,
				`(?i)non-fast-forward`,
				`(?i)Updates were rejected`,
			},
			SuggestedFix: "Fetch and rebase onto the remote branch, resolve any conflicts, then push again. Never force-push a shared branch.",
			Severity:     models.SeverityMedium,
		},
		{
			Category:    GitDetachedHead,
			Description: "Repository is in detached HEAD state",
			Patterns: []string{
				`(?i)detached HEAD`,
				`(?i)You are not currently on a branch`,
			},
			SuggestedFix: "Create a branch at the current commit (git switch -c <name>) before committing further work.",
			Severity:     models.SeverityLow,
		},
		{
			Category:    DatabaseConnection,
			Description: "Database unreachable",
			Patterns: []string{
				`ECONNREFUSED.*:(?:5432|3306|27017|6379)`,
				`(?i)connection to (?:server|database) .*failed`,
				`(?i)could not connect to (?:server|database)`,
				`(?i)database .* does not exist`,
			},
			SuggestedFix: "Confirm the database is running and the connection string (host, port, credentials, database name) matches the environment.",
			Severity:     models.SeverityCritical,
		},
		{
			Category:    DatabaseConstraint,
			Description: "Constraint violation",
			Patterns: []string{
				`(?i)unique constraint`,
				`(?i)foreign key constraint`,
				`(?i)violates (?:not-null|check) constraint`,
				`(?i)duplicate key value`,
			},
			SuggestedFix: "Inspect the data being written against the schema constraints; fix the data or the insert order rather than dropping the constraint.",
			Severity:     models.SeverityHigh,
		},
		{
			Category:    DatabaseMigration,
			Description: "Migration failed or schema drifted",
			Patterns: []string{
				`(?i)migration .*failed`,
				`(?i)relation "[^"]+" does not exist`,
				`(?i)no such table`,
				`(?i)prisma migrate`,
			},
			SuggestedFix: "Check migration status, apply pending migrations in order, and regenerate the client/schema artifacts.",
			Severity:     models.SeverityHigh,
		},
		{
			Category:    APINetwork,
			Description: "Network request failed",
			Patterns: []string{
				`ECONNREFUSED`,
				`ETIMEDOUT`,
				`ENOTFOUND`,
				`(?i)fetch failed`,
				`(?i)socket hang up`,
				`(?i)\b5\d{2} (?:Internal Server Error|Bad Gateway|Service Unavailable|Gateway Timeout)`,
			},
			SuggestedFix: "Verify the endpoint URL and that the service is reachable. Add a bounded retry only for transient failures.",
			Severity:     models.SeverityMedium,
		},
		{
			Category:    APIAuth,
			Description: "Request rejected for authentication or authorization",
			Patterns: []string{
				`(?i)(?:status|code|HTTP)\W{0,3}401\b|Unauthorized`,
				`(?i)(?:status|code|HTTP)\W{0,3}403\b|Forbidden`,
				`(?i)invalid (?:api key|token|credentials)`,
			},
			SuggestedFix: "Check that the credentials are present in the environment, not expired, and scoped for this endpoint. Never hard-code secrets.",
			Severity:     models.SeverityHigh,
		},
		{
			Category:    APIRateLimit,
			Description: "Rate limit exceeded",
			Patterns: []string{
				`(?i)(?:status|code|HTTP)\W{0,3}429\b`,
				`(?i)rate limit`,
				`(?i)too many requests`,
			},
			SuggestedFix: "Back off before retrying and reduce request volume; respect the Retry-After header when present.",
			Severity:     models.SeverityMedium,
		},
		{
			Category:    ResourceExhaustion,
			Description: "Process ran out of memory, disk or handles",
			Patterns: []string{
				`(?i)JavaScript heap out of memory`,
				`(?i)out of memory`,
				`ENOSPC`,
				`EMFILE`,
				`(?i)no space left on device`,
			},
			SuggestedFix: "Free the exhausted resource (disk, file handles, memory) or raise the limit deliberately, and look for leaks in the code that triggered it.",
			Severity:     models.SeverityCritical,
		},
		{
			Category:    SyntaxError,
			Description: "Source could not be parsed",
			Patterns: []string{
				`SyntaxError`,
				`(?i)Unexpected token`,
				`(?i)unexpected end of (?:input|file)`,
				`(?i)syntax error`,
			},
			SuggestedFix: "Open the file at the reported position and check for unbalanced brackets, quotes or a stray character introduced by the last edit.",
			Severity:     models.SeverityHigh,
		},
	}
}

// DefaultCategoryMap maps each ErrorCategory onto the pattern categories that
// are searched first for it. Unknown has no restriction and goes straight to
// the unrestricted scan.
func DefaultCategoryMap() map[models.ErrorCategory][]string {
	return map[models.ErrorCategory][]string{
		models.CategoryNpmInstall:      {NpmInstallError, NpmPeerDependency, NpmLockfile, ModuleNotFound},
		models.CategoryTypeScriptError: {TypeScriptTypeError, TypeScriptConfigError, TypeMismatch},
		models.CategoryTestFailure:     {TestFailure, TestTimeout, SnapshotMismatch},
		models.CategoryBuildFailure:    {BuildFailure, CompilationError, MissingImport, SyntaxError, ResourceExhaustion},
		models.CategoryFileNotFound:    {FileNotFound, PermissionDenied},
		models.CategoryGitConflict:     {GitConflict, GitPushRejected, GitDetachedHead},
		models.CategoryDatabaseError:   {DatabaseConnection, DatabaseConstraint, DatabaseMigration},
		models.CategoryAPIError:        {APINetwork, APIAuth, APIRateLimit},
		models.CategoryUnknown:         {},
	}
}

// DefaultHintKeys maps each ErrorCategory onto the pattern category whose
// research hints it uses.
func DefaultHintKeys() map[models.ErrorCategory]string {
	return map[models.ErrorCategory]string{
		models.CategoryNpmInstall:      NpmInstallError,
		models.CategoryTypeScriptError: TypeScriptTypeError,
		models.CategoryTestFailure:     TestFailure,
		models.CategoryBuildFailure:    BuildFailure,
		models.CategoryFileNotFound:    FileNotFound,
		models.CategoryGitConflict:     GitConflict,
		models.CategoryDatabaseError:   DatabaseConnection,
		models.CategoryAPIError:        APINetwork,
	}
}

// DefaultHints returns the research hint table keyed by pattern category.
func DefaultHints() map[string]models.Hints {
	return map[string]models.Hints{
		NpmInstallError: {
			Official:  []string{"docs.npmjs.com/cli/commands/npm-install", "docs.npmjs.com/common-errors", "nodejs.org/api/errors.html"},
			Community: []string{"stackoverflow.com/questions/tagged/npm", "github.com/npm/cli/issues"},
		},
		TypeScriptTypeError: {
			Official:  []string{"typescriptlang.org/docs/handbook", "typescriptlang.org/tsconfig"},
			Community: []string{"stackoverflow.com/questions/tagged/typescript", "github.com/microsoft/TypeScript/issues"},
		},
		TestFailure: {
			Official:  []string{"vitest.dev/guide", "jestjs.io/docs/getting-started", "playwright.dev/docs/intro"},
			Community: []string{"stackoverflow.com/questions/tagged/jestjs", "github.com/vitest-dev/vitest/discussions"},
		},
		BuildFailure: {
			Official:  []string{"vitejs.dev/guide/troubleshooting", "webpack.js.org/concepts", "nextjs.org/docs/messages"},
			Community: []string{"stackoverflow.com/questions/tagged/webpack", "github.com/vitejs/vite/issues"},
		},
		FileNotFound: {
			Official:  []string{"nodejs.org/api/fs.html", "nodejs.org/api/path.html"},
			Community: []string{"stackoverflow.com/questions/tagged/node.js"},
		},
		GitConflict: {
			Official:  []string{"git-scm.com/docs/git-merge", "git-scm.com/book/en/v2/Git-Branching-Basic-Branching-and-Merging"},
			Community: []string{"stackoverflow.com/questions/tagged/git-merge-conflict"},
		},
		DatabaseConnection: {
			Official:  []string{"prisma.io/docs/orm/reference/error-reference", "postgresql.org/docs/current/errcodes-appendix.html"},
			Community: []string{"stackoverflow.com/questions/tagged/prisma", "github.com/prisma/prisma/discussions"},
		},
		APINetwork: {
			Official:  []string{"developer.mozilla.org/en-US/docs/Web/HTTP/Status", "nodejs.org/api/errors.html#common-system-errors"},
			Community: []string{"stackoverflow.com/questions/tagged/fetch-api"},
		},
	}
}
