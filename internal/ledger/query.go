// Package ledger talks to the accounting ledger: a restricted query language,
// the query and write gateways, a typed data source over them, customer
// creation, and the HTTP implementation of the gateways.
package ledger

import (
	"fmt"
	"strings"
)

// Entity is a queryable ledger collection.
type Entity string

const (
	EntityCustomer      Entity = "Customer"
	EntityItem          Entity = "Item"
	EntityClass         Entity = "Class"
	EntityDeposit       Entity = "Deposit"
	EntityPaymentMethod Entity = "PaymentMethod"
	EntityTaxCode       Entity = "TaxCode"
	EntitySalesReceipt  Entity = "SalesReceipt"
)

// Operator is a comparison allowed in a WHERE clause.
type Operator string

const (
	OpEq   Operator = "="
	OpIn   Operator = "IN"
	OpLike Operator = "LIKE"
)

// Condition is one WHERE predicate. Conditions are ANDed.
type Condition struct {
	Field    string
	Operator Operator
	Values   []string
}

// Query is a restricted SELECT against one entity:
//
//	SELECT * FROM <entity> [WHERE ...] [ORDER BY <field> DESC] [MAXRESULTS n]
type Query struct {
	Entity     Entity
	Conditions []Condition
	OrderDesc  string
	MaxResults int
}

// Select starts a query against entity.
func Select(entity Entity) Query {
	return Query{Entity: entity}
}

// Where adds an equality predicate.
func (q Query) Where(field, value string) Query {
	return q.with(Condition{Field: field, Operator: OpEq, Values: []string{value}})
}

// WhereIn adds a membership predicate.
func (q Query) WhereIn(field string, values ...string) Query {
	vals := make([]string, len(values))
	copy(vals, values)
	return q.with(Condition{Field: field, Operator: OpIn, Values: vals})
}

// WhereLike adds a pattern predicate; % matches any run of characters.
func (q Query) WhereLike(field, pattern string) Query {
	return q.with(Condition{Field: field, Operator: OpLike, Values: []string{pattern}})
}

// OrderByDesc sorts results on field, highest first.
func (q Query) OrderByDesc(field string) Query {
	q.OrderDesc = field
	return q
}

// Limit caps the number of returned records.
func (q Query) Limit(n int) Query {
	q.MaxResults = n
	return q
}

func (q Query) with(c Condition) Query {
	conds := make([]Condition, len(q.Conditions), len(q.Conditions)+1)
	copy(conds, q.Conditions)
	q.Conditions = append(conds, c)
	return q
}

// String renders the query in the ledger query language.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(string(q.Entity))

	for i, c := range q.Conditions {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(c.Field)
		b.WriteString(" ")
		b.WriteString(string(c.Operator))
		b.WriteString(" ")
		if c.Operator == OpIn {
			quoted := make([]string, len(c.Values))
			for j, v := range c.Values {
				quoted[j] = quote(v)
			}
			b.WriteString("(" + strings.Join(quoted, ", ") + ")")
		} else if len(c.Values) > 0 {
			b.WriteString(literal(c.Values[0]))
		}
	}

	if q.OrderDesc != "" {
		fmt.Fprintf(&b, " ORDER BY %s DESC", q.OrderDesc)
	}
	if q.MaxResults > 0 {
		fmt.Fprintf(&b, " MAXRESULTS %d", q.MaxResults)
	}
	return b.String()
}

// literal leaves booleans unquoted so Active = true is valid.
func literal(v string) string {
	if v == "true" || v == "false" {
		return v
	}
	return quote(v)
}

// quote wraps v in single quotes, escaping embedded quotes with a backslash
// as the ledger query language expects.
func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `\'`) + "'"
}
