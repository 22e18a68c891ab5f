package types

// Predicate is one key/value test of a Condition, e.g. "ext": ["jpg", "png"]
type Predicate struct {
	Key   string
	Value interface{}
}

// Condition is an implicitly AND-ed list of predicates. Order follows the
// rule document so evaluation and logging are deterministic.
type Condition []Predicate
