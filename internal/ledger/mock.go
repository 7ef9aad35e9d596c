package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"hhn/ledger-bridge/internal/etlerror"
	"hhn/ledger-bridge/internal/models"
)

// MockGateway is an in-memory ledger for tests. It evaluates the restricted
// query language against its record slices and counts every call.
type MockGateway struct {
	mu sync.Mutex

	Customers      []models.TargetCustomer
	Items          []models.LedgerItem
	Classes        []models.LedgerClass
	Deposits       []models.LedgerDeposit
	PaymentMethods []models.LedgerPaymentMethod
	TaxCodes       []models.LedgerTaxCode
	SalesReceipts  []models.TargetTransaction

	// QueryErrors makes queries against an entity fail.
	QueryErrors map[Entity]error
	// AddCustomerError makes AddCustomer fail.
	AddCustomerError error
	// FailDocNumbers makes AddSalesReceipt fail for those document numbers.
	FailDocNumbers map[string]error

	queries []Query
	adds    map[Entity]int
	nextID  int
}

// NewMockGateway returns an empty MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{nextID: 1000}
}

// Query evaluates q against the stored records.
func (m *MockGateway) Query(_ context.Context, q Query, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries = append(m.queries, q)
	if err := m.QueryErrors[q.Entity]; err != nil {
		return &etlerror.LedgerError{Operation: "query", Entity: string(q.Entity), Err: err}
	}

	records, err := m.records(q.Entity)
	if err != nil {
		return err
	}

	type row struct {
		raw    json.RawMessage
		fields map[string]interface{}
	}
	var rows []row
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return err
		}
		if matchesAll(fields, q.Conditions) {
			rows = append(rows, row{raw: raw, fields: fields})
		}
	}

	if q.OrderDesc != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			return greater(field(rows[i].fields, q.OrderDesc), field(rows[j].fields, q.OrderDesc))
		})
	}
	if q.MaxResults > 0 && len(rows) > q.MaxResults {
		rows = rows[:q.MaxResults]
	}

	list := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		list[i] = r.raw
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// AddCustomer stores customer under a fresh id.
func (m *MockGateway) AddCustomer(_ context.Context, customer models.TargetCustomer) (models.TargetCustomer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.countAdd(EntityCustomer)
	if m.AddCustomerError != nil {
		return models.TargetCustomer{}, &etlerror.LedgerError{Operation: "create", Entity: string(EntityCustomer), Err: m.AddCustomerError}
	}
	customer.ID = m.newID()
	if customer.FullyQualifiedName == "" {
		customer.FullyQualifiedName = customer.DisplayName
	}
	m.Customers = append(m.Customers, customer)
	return customer, nil
}

// AddSalesReceipt stores txn under a fresh id.
func (m *MockGateway) AddSalesReceipt(_ context.Context, txn models.TargetTransaction) (models.TargetTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.countAdd(EntitySalesReceipt)
	if err := m.FailDocNumbers[txn.DocNumber]; err != nil {
		return models.TargetTransaction{}, &etlerror.LedgerError{Operation: "create", Entity: string(EntitySalesReceipt), StatusCode: 400, Err: err}
	}
	txn.ID = m.newID()
	m.SalesReceipts = append(m.SalesReceipts, txn)
	return txn, nil
}

// QueryCount returns how many queries were run against entity.
func (m *MockGateway) QueryCount(entity Entity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, q := range m.queries {
		if q.Entity == entity {
			n++
		}
	}
	return n
}

// TotalQueries returns how many queries were run.
func (m *MockGateway) TotalQueries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// Queries returns the queries run so far, oldest first.
func (m *MockGateway) Queries() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Query, len(m.queries))
	copy(out, m.queries)
	return out
}

// AddCount returns how many creates were attempted for entity.
func (m *MockGateway) AddCount(entity Entity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adds[entity]
}

func (m *MockGateway) countAdd(entity Entity) {
	if m.adds == nil {
		m.adds = make(map[Entity]int)
	}
	m.adds[entity]++
}

func (m *MockGateway) newID() models.ReferenceID {
	if m.nextID == 0 {
		m.nextID = 1000
	}
	m.nextID++
	return models.ReferenceID(strconv.Itoa(m.nextID))
}

func (m *MockGateway) records(entity Entity) ([]interface{}, error) {
	var out []interface{}
	switch entity {
	case EntityCustomer:
		for _, r := range m.Customers {
			out = append(out, r)
		}
	case EntityItem:
		for _, r := range m.Items {
			out = append(out, r)
		}
	case EntityClass:
		for _, r := range m.Classes {
			out = append(out, r)
		}
	case EntityDeposit:
		for _, r := range m.Deposits {
			out = append(out, r)
		}
	case EntityPaymentMethod:
		for _, r := range m.PaymentMethods {
			out = append(out, r)
		}
	case EntityTaxCode:
		for _, r := range m.TaxCodes {
			out = append(out, r)
		}
	case EntitySalesReceipt:
		for _, r := range m.SalesReceipts {
			out = append(out, r)
		}
	default:
		return nil, fmt.Errorf("mock ledger: unsupported entity %q", entity)
	}
	return out, nil
}

// field resolves name on a decoded record. Nested email and reference
// holders compare on their inner value, as the ledger does.
func field(fields map[string]interface{}, name string) string {
	v, ok := fields[name]
	if !ok || v == nil {
		return ""
	}
	if nested, ok := v.(map[string]interface{}); ok {
		for _, inner := range []string{"Address", "value"} {
			if iv, ok := nested[inner]; ok {
				return fmt.Sprint(iv)
			}
		}
		return ""
	}
	return fmt.Sprint(v)
}

func matchesAll(fields map[string]interface{}, conds []Condition) bool {
	for _, c := range conds {
		if !matches(field(fields, c.Field), c) {
			return false
		}
	}
	return true
}

// matches compares case-insensitively, as ledger queries do.
func matches(value string, c Condition) bool {
	switch c.Operator {
	case OpEq:
		return len(c.Values) == 1 && strings.EqualFold(value, c.Values[0])
	case OpIn:
		for _, v := range c.Values {
			if strings.EqualFold(value, v) {
				return true
			}
		}
		return false
	case OpLike:
		return len(c.Values) == 1 && like(strings.ToLower(value), strings.ToLower(c.Values[0]))
	default:
		return false
	}
}

// like supports a single trailing, leading or surrounding % wildcard.
func like(value, pattern string) bool {
	prefix := strings.HasSuffix(pattern, "%")
	suffix := strings.HasPrefix(pattern, "%")
	core := strings.Trim(pattern, "%")
	switch {
	case prefix && suffix:
		return strings.Contains(value, core)
	case prefix:
		return strings.HasPrefix(value, core)
	case suffix:
		return strings.HasSuffix(value, core)
	default:
		return value == core
	}
}

// greater orders numerically when both values are integers.
func greater(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai > bi
	}
	return a > b
}
