package ast

// WhereCondition is the tagged union for boolean predicates appearing in
// WHERE/HAVING. It is kept distinct from Expression (even though every
// variant wraps or is an Expression) because the planner needs to inspect
// boolean structure (AND/OR/NOT) without descending into arbitrary
// expression trees, and because ListPredicate and Comparison read more
// naturally as conditions than as generic function calls.
type WhereCondition interface {
	whereNode()
}

// CondComparison wraps a Comparison used as a top-level predicate.
type CondComparison struct {
	Comparison *Comparison
}

func (*CondComparison) whereNode() {}

// CondAnd is the conjunction of two conditions.
type CondAnd struct {
	Left, Right WhereCondition
}

func (*CondAnd) whereNode() {}

// CondOr is the disjunction of two conditions.
type CondOr struct {
	Left, Right WhereCondition
}

func (*CondOr) whereNode() {}

// CondNot negates a condition.
type CondNot struct {
	Inner WhereCondition
}

func (*CondNot) whereNode() {}

// CondExpression treats an arbitrary Expression as a boolean predicate
// (null and false are false, any other value is true), e.g. a boolean
// variable or function call.
type CondExpression struct {
	Expr Expression
}

func (*CondExpression) whereNode() {}

// CondListPredicate wraps a ListPredicate used as a top-level predicate.
type CondListPredicate struct {
	Predicate *ListPredicate
}

func (*CondListPredicate) whereNode() {}
