package repository

// Where is a set of column = value equality filters combined with AND.
// Keys are column names; values are compared as-is by the backend.
type Where map[string]any

// FindArgs represents a skip/take window plus ordering for listing operations.
// I keep it intentionally small; anything richer belongs to dedicated query functions.
type FindArgs struct {
	Skip    int
	Take    int
	OrderBy string
	Desc    bool
	Where   Where
}
