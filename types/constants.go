package types

// Names shared by the filter declarations and the gateway payloads: the
// struct tag of declared filters and the argument keys of list fields.
const (
	// GremlinTag is the struct tag name used to declare vertex filter
	// fields, their property keys and their relationships.
	GremlinTag = "gremlin"

	// FilterArgument is the resolver argument holding the vertex filter
	// input of a vertex-list field.
	FilterArgument = "input"

	// PaginationArgument is the resolver argument holding the
	// {page, per_page} pagination input.
	PaginationArgument = "pagination"

	// PageField and PerPageField are the keys of the pagination input.
	PageField    = "page"
	PerPageField = "per_page"
)

const (
	// DefaultPage is used when a pagination input omits "page".
	DefaultPage = 1

	// DefaultPerPage is used when a pagination input omits "per_page".
	DefaultPerPage = 10

	// DefaultMaxFilterDepth bounds how many relationship filters may be
	// nested inside one another in a single filter input.
	DefaultMaxFilterDepth = 8
)
