package dupcat

// Hasher computes the digest pair for a file's content.
// Implementations may read the file more than once (e.g. one pass per
// algorithm) but must return the same pair regardless of strategy.
type Hasher interface {
	PairFor(path string, size int64) (DigestPair, error)
}

// Service coordinates the catalog, hasher and filesystem to perform the
// high-level operations needed by the CLI: indexing a tree, resolving
// duplicate groups, merging duplicates and cleaning the catalog.
type Service struct {
	catalog Catalog
	hasher  Hasher
	logger  Logger
	clock   Clock
}

// NewService creates a Service with the provided dependencies.
func NewService(catalog Catalog, hasher Hasher, logger Logger, clock Clock) *Service {
	return &Service{
		catalog: catalog,
		hasher:  hasher,
		logger:  logger,
		clock:   clock,
	}
}
