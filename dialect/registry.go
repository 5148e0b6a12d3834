package dialect

import (
	"fmt"
	"strings"
	"sync"

	version "github.com/hashicorp/go-version"
	"golang.org/x/sync/singleflight"
)

// ServerInfo is the identity a connection reports about its server, used to
// select and specialize a Dialect.
type ServerInfo struct {
	// Product is the server product name, e.g. "PostgreSQL", "MySQL",
	// "MariaDB", "SQLite", "Microsoft SQL Server", "Oracle". Matching is
	// case-insensitive on a substring basis.
	Product string
	// Version is the server version, e.g. "16.2" or "3.39.4".
	Version string
	// QuoteString is the native identifier quote string. A single space
	// normalizes to "no quoting support"; empty means "use the dialect
	// default".
	QuoteString string
	// ExtraNameChars lists additional characters the server treats as
	// unescaped-safe in identifiers.
	ExtraNameChars string
}

// Builder constructs a Dialect for a detected server.
type Builder func(info ServerInfo) (*Dialect, error)

// Registry resolves a detected server identity to an immutable Dialect.
// Descriptors are built once per (product, version, quoting) identity;
// concurrent lookups for the same identity are collapsed.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder

	group singleflight.Group
	cache sync.Map // string -> *Dialect
}

// NewRegistry returns a Registry with the built-in dialects registered.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	r.Register(Postgres, buildPostgres)
	r.Register(MySQL, buildMySQL)
	r.Register(MariaDB, buildMariaDB)
	r.Register(SQLite, buildSQLite)
	r.Register(SQLServer, buildSQLServer)
	r.Register(Oracle, buildOracle)
	return r
}

// Register adds or replaces the builder for a product keyword. The keyword
// is matched case-insensitively as a substring of the reported product name.
func (r *Registry) Register(keyword string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[strings.ToLower(keyword)] = b
}

// Lookup returns the Dialect for the given server identity.
func (r *Registry) Lookup(info ServerInfo) (*Dialect, error) {
	key := strings.ToLower(info.Product) + "/" + info.Version + "/" + info.QuoteString + "/" + info.ExtraNameChars
	if d, ok := r.cache.Load(key); ok {
		return d.(*Dialect), nil
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		// A previous flight may have finished between the caller's cache
		// miss and this one starting.
		if d, ok := r.cache.Load(key); ok {
			return d, nil
		}
		b, err := r.builder(info.Product)
		if err != nil {
			return nil, err
		}
		d, err := b(info)
		if err != nil {
			return nil, err
		}
		actual, _ := r.cache.LoadOrStore(key, d)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dialect), nil
}

func (r *Registry) builder(product string) (Builder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := strings.ToLower(product)
	// Prefer the longest matching keyword so "mariadb" wins over "mysql"
	// in products like "MySQL (MariaDB)".
	var (
		best    Builder
		bestLen int
	)
	for keyword, b := range r.builders {
		if strings.Contains(p, keyword) && len(keyword) > bestLen {
			best, bestLen = b, len(keyword)
		}
	}
	if best == nil {
		return nil, fmt.Errorf("dialect: unsupported server product %q", product)
	}
	return best, nil
}

var defaultRegistry = NewRegistry()

// Lookup resolves info against the default registry.
func Lookup(info ServerInfo) (*Dialect, error) {
	return defaultRegistry.Lookup(info)
}

// atLeast reports whether the reported version is >= the constraint
// version. Unparsable versions gate the capability off.
func atLeast(reported, minimum string) bool {
	v, err := version.NewVersion(reported)
	if err != nil {
		return false
	}
	m, err := version.NewVersion(minimum)
	if err != nil {
		return false
	}
	return v.GreaterThanOrEqual(m)
}

// applyServerQuoting overrides the dialect-default quoting with what the
// server reported. A quote string of a single space means the server
// supports no identifier quoting.
func applyServerQuoting(cfg *Config, info ServerInfo) {
	switch info.QuoteString {
	case "":
	case " ":
		cfg.Quote = 0
	default:
		cfg.Quote = []rune(info.QuoteString)[0]
	}
	cfg.SafeNameChars += info.ExtraNameChars
}

func buildPostgres(info ServerInfo) (*Dialect, error) {
	cfg := Config{
		Name:           Postgres,
		Quote:          '"',
		MaxParams:      65535,
		Returning:      true,
		MultiRowUpdate: true,
		Pipelines:      standardPipelines(),
		ErrorCodes:     postgresErrorCodes(),
	}
	applyServerQuoting(&cfg, info)
	return New(cfg), nil
}

func buildMySQL(info ServerInfo) (*Dialect, error) {
	cfg := Config{
		Name:             MySQL,
		Quote:            '`',
		MaxParams:        65535,
		BackslashEscapes: true,
		HexBytesPrefix:   true,
		Pipelines:        mysqlPipelines(),
		ErrorCodes:       mysqlErrorCodes(),
	}
	applyServerQuoting(&cfg, info)
	return New(cfg), nil
}

func buildMariaDB(info ServerInfo) (*Dialect, error) {
	cfg := Config{
		Name:             MariaDB,
		Quote:            '`',
		MaxParams:        65535,
		BackslashEscapes: true,
		// INSERT ... RETURNING and DELETE ... RETURNING since 10.5.
		Returning:      atLeast(info.Version, "10.5.0"),
		HexBytesPrefix: true,
		Pipelines:      mysqlPipelines(),
		ErrorCodes:     mysqlErrorCodes(),
	}
	applyServerQuoting(&cfg, info)
	return New(cfg), nil
}

func buildSQLite(info ServerInfo) (*Dialect, error) {
	maxParams := 999
	if atLeast(info.Version, "3.32.0") {
		maxParams = 32766
	}
	cfg := Config{
		Name:      SQLite,
		Quote:     '"',
		MaxParams: maxParams,
		// RETURNING since 3.35.
		Returning:      atLeast(info.Version, "3.35.0"),
		HexBytesPrefix: true,
		Pipelines:      standardPipelines(),
		ErrorCodes:     sqliteErrorCodes(),
	}
	applyServerQuoting(&cfg, info)
	return New(cfg), nil
}

func buildSQLServer(info ServerInfo) (*Dialect, error) {
	cfg := Config{
		Name:           SQLServer,
		Quote:          '"',
		MaxParams:      2100,
		Returning:      true, // via OUTPUT
		NumericBools:   true,
		HexBytesPrefix: true,
		Pipelines:      sqlserverPipelines(),
		ErrorCodes:     sqlserverErrorCodes(),
	}
	applyServerQuoting(&cfg, info)
	return New(cfg), nil
}

func buildOracle(info ServerInfo) (*Dialect, error) {
	cfg := Config{
		Name:           Oracle,
		Quote:          '"',
		MaxParams:      64000,
		NumericBools:   true,
		HexBytesPrefix: true,
		Pipelines:      oraclePipelines(),
		ErrorCodes:     oracleErrorCodes(),
	}
	applyServerQuoting(&cfg, info)
	return New(cfg), nil
}
