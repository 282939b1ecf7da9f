package sqlc

// BackendType names the SQL engine behind a Queries instance.
type BackendType uint8

const (
	// BackendTypeUnknown is reported for instances created through New or
	// WithTx.
	BackendTypeUnknown BackendType = iota

	// BackendTypeSqlite is an embedded sqlite database.
	BackendTypeSqlite

	// BackendTypePostgres is a postgres server.
	BackendTypePostgres
)

// String returns the name of the backend.
func (b BackendType) String() string {
	switch b {
	case BackendTypeSqlite:
		return "sqlite"

	case BackendTypePostgres:
		return "postgres"

	default:
		return "unknown"
	}
}

// backendTX tags a DBTX with the engine it talks to.
type backendTX struct {
	DBTX

	backend BackendType
}

// Backend returns the SQL engine the queries run against.
func (q *Queries) Backend() BackendType {
	if tx, ok := q.db.(*backendTX); ok {
		return tx.backend
	}

	return BackendTypeUnknown
}

// NewSqlite creates queries over a sqlite handle.
func NewSqlite(db DBTX) *Queries {
	return &Queries{db: &backendTX{DBTX: db, backend: BackendTypeSqlite}}
}

// NewPostgres creates queries over a postgres handle.
func NewPostgres(db DBTX) *Queries {
	return &Queries{db: &backendTX{DBTX: db, backend: BackendTypePostgres}}
}
