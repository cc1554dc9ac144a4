package detect

import "dirigent/internal/types"

// Default keyword tables. Custom keywords are layered on top via the
// registries' Add methods; these slices are copied at registry
// construction and never mutated.

var defaultLayerKeywords = map[types.LayerTag][]string{
	types.LayerPresentation: {
		"ui", "component", "react", "vue", "angular", "svelte", "frontend",
		"css", "html", "styling", "layout", "responsive", "form", "button",
		"page", "view", "template", "render", "browser", "accessibility",
		"dom", "user interface",
	},
	types.LayerApplication: {
		"use case", "service", "workflow", "orchestration", "command",
		"handler", "application service", "dto", "mediator", "business flow",
		"coordinator", "facade", "session", "request handling",
	},
	types.LayerDomain: {
		"entity", "aggregate", "value object", "domain model", "business rule",
		"invariant", "domain event", "bounded context", "ubiquitous language",
		"domain logic", "policy", "specification pattern",
	},
	types.LayerInfrastructure: {
		"repository", "adapter", "gateway", "client", "http client",
		"message queue", "broker", "infrastructure", "integration",
		"external api", "file system", "email", "third party",
	},
	types.LayerData: {
		"database", "sql", "query", "migration", "schema", "index",
		"transaction", "orm", "persistence", "table", "stored procedure",
		"connection pool", "data access",
	},
	types.LayerTesting: {
		"test", "unit test", "integration test", "mock", "stub", "fixture",
		"assertion", "coverage", "e2e", "test suite", "tdd", "regression",
	},
	types.LayerCrossCutting: {
		"logging", "monitoring", "security", "authentication", "authorization",
		"caching", "configuration", "error handling", "observability",
		"metrics", "tracing", "middleware", "cross cutting",
	},
}

var defaultTopicKeywords = map[string][]string{
	"security": {
		"security", "vulnerability", "encryption", "xss", "csrf",
		"sql injection", "sanitize", "secret", "owasp",
	},
	"authentication": {
		"authentication", "login", "oauth", "jwt", "token", "password",
		"session", "sso",
	},
	"validation": {
		"validation", "validate", "input validation", "schema validation",
		"sanitize input", "constraint",
	},
	"error-handling": {
		"error handling", "exception", "error", "panic", "recover", "retry",
		"failure", "fault tolerance",
	},
	"testing": {
		"test", "testing", "unit test", "mock", "coverage", "assertion",
		"tdd", "test case",
	},
	"performance": {
		"performance", "latency", "optimization", "profiling", "benchmark",
		"throughput", "memory usage", "slow",
	},
	"caching": {
		"cache", "caching", "ttl", "invalidation", "memoization", "redis cache",
	},
	"logging": {
		"logging", "log", "structured logging", "log level", "audit trail",
	},
	"api-design": {
		"api", "endpoint", "rest", "graphql", "versioning", "pagination",
		"api design", "contract",
	},
	"database": {
		"database", "query", "migration", "transaction", "index", "schema",
		"n+1", "connection pool",
	},
	"concurrency": {
		"concurrency", "race condition", "goroutine", "thread", "lock",
		"mutex", "deadlock", "parallel",
	},
	"configuration": {
		"configuration", "config", "environment variable", "feature flag",
		"settings",
	},
	"deployment": {
		"deployment", "ci", "cd", "pipeline", "release", "rollback",
		"container image",
	},
	"architecture": {
		"architecture", "design pattern", "coupling", "cohesion", "dependency",
		"layering", "modularity", "boundary",
	},
	"documentation": {
		"documentation", "docs", "readme", "comment", "docstring", "changelog",
	},
	"accessibility": {
		"accessibility", "a11y", "aria", "screen reader", "wcag", "contrast",
	},
}

var defaultTechEntries = []TechEntry{
	{Name: "react", Category: types.TechFrontend,
		Aliases:    []string{"react", "reactjs", "react.js"},
		Supporting: []string{"jsx", "hooks", "component", "props", "redux"}},
	{Name: "vue", Category: types.TechFrontend,
		Aliases:    []string{"vue", "vuejs", "vue.js"},
		Supporting: []string{"composition api", "pinia", "vuex"}},
	{Name: "angular", Category: types.TechFrontend,
		Aliases:    []string{"angular"},
		Supporting: []string{"rxjs", "ngmodule", "directive"}},
	{Name: "nextjs", Category: types.TechFrontend,
		Aliases:    []string{"nextjs", "next.js"},
		Supporting: []string{"ssr", "app router", "server component"}},
	{Name: "node", Category: types.TechBackend,
		Aliases:    []string{"node", "nodejs", "node.js"},
		Supporting: []string{"npm", "express", "event loop"}},
	{Name: "express", Category: types.TechBackend,
		Aliases:    []string{"express", "expressjs"},
		Supporting: []string{"middleware", "router", "req", "res"}},
	{Name: "django", Category: types.TechBackend,
		Aliases:    []string{"django"},
		Supporting: []string{"orm", "view", "wsgi", "migration"}},
	{Name: "spring", Category: types.TechBackend,
		Aliases:    []string{"spring", "spring boot"},
		Supporting: []string{"bean", "autowired", "jpa"}},
	{Name: "typescript", Category: types.TechLanguage,
		Aliases:    []string{"typescript", "ts"},
		Supporting: []string{"interface", "generics", "tsconfig"}},
	{Name: "javascript", Category: types.TechLanguage,
		Aliases:    []string{"javascript", "js", "ecmascript"},
		Supporting: []string{"promise", "async", "closure"}},
	{Name: "python", Category: types.TechLanguage,
		Aliases:    []string{"python"},
		Supporting: []string{"pip", "virtualenv", "decorator"}},
	{Name: "go", Category: types.TechLanguage,
		Aliases:    []string{"golang"},
		Supporting: []string{"goroutine", "channel", "interface"}},
	{Name: "java", Category: types.TechLanguage,
		Aliases:    []string{"java"},
		Supporting: []string{"jvm", "maven", "gradle"}},
	{Name: "postgresql", Category: types.TechDatabase,
		Aliases:    []string{"postgresql", "postgres"},
		Supporting: []string{"jsonb", "psql", "pg"}},
	{Name: "mysql", Category: types.TechDatabase,
		Aliases:    []string{"mysql", "mariadb"},
		Supporting: []string{"innodb", "replication"}},
	{Name: "mongodb", Category: types.TechDatabase,
		Aliases:    []string{"mongodb", "mongo"},
		Supporting: []string{"document", "collection", "aggregation"}},
	{Name: "redis", Category: types.TechDatabase,
		Aliases:    []string{"redis"},
		Supporting: []string{"cache", "pubsub", "ttl"}},
	{Name: "sqlite", Category: types.TechDatabase,
		Aliases:    []string{"sqlite", "sqlite3"},
		Supporting: []string{"embedded database", "wal"}},
	{Name: "prisma", Category: types.TechORM,
		Aliases:    []string{"prisma"},
		Supporting: []string{"schema.prisma", "migrate"}},
	{Name: "typeorm", Category: types.TechORM,
		Aliases:    []string{"typeorm"},
		Supporting: []string{"entity", "repository", "migration"}},
	{Name: "gorm", Category: types.TechORM,
		Aliases:    []string{"gorm"},
		Supporting: []string{"automigrate", "preload"}},
	{Name: "hibernate", Category: types.TechORM,
		Aliases:    []string{"hibernate"},
		Supporting: []string{"jpa", "entity", "session"}},
	{Name: "aws", Category: types.TechCloud,
		Aliases:    []string{"aws", "amazon web services"},
		Supporting: []string{"s3", "lambda", "ec2", "dynamodb"}},
	{Name: "azure", Category: types.TechCloud,
		Aliases:    []string{"azure"},
		Supporting: []string{"blob storage", "function app"}},
	{Name: "gcp", Category: types.TechCloud,
		Aliases:    []string{"gcp", "google cloud"},
		Supporting: []string{"bigquery", "cloud run", "gke"}},
	{Name: "docker", Category: types.TechContainer,
		Aliases:    []string{"docker"},
		Supporting: []string{"dockerfile", "image", "compose"}},
	{Name: "kubernetes", Category: types.TechContainer,
		Aliases:    []string{"kubernetes", "k8s"},
		Supporting: []string{"pod", "deployment", "helm", "kubectl"}},
	{Name: "jest", Category: types.TechTesting,
		Aliases:    []string{"jest"},
		Supporting: []string{"snapshot", "mock", "describe"}},
	{Name: "pytest", Category: types.TechTesting,
		Aliases:    []string{"pytest"},
		Supporting: []string{"fixture", "parametrize"}},
	{Name: "cypress", Category: types.TechTesting,
		Aliases:    []string{"cypress"},
		Supporting: []string{"e2e", "selector"}},
	{Name: "graphql", Category: types.TechAPI,
		Aliases:    []string{"graphql"},
		Supporting: []string{"resolver", "schema", "mutation"}},
	{Name: "rest", Category: types.TechAPI,
		Aliases:    []string{"rest", "restful"},
		Supporting: []string{"endpoint", "http verb", "resource"}},
	{Name: "grpc", Category: types.TechAPI,
		Aliases:    []string{"grpc"},
		Supporting: []string{"protobuf", "stream", "stub"}},
}
