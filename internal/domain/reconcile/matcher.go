package reconcile

// ActionType classifies the outcome of matching one source record
// against the pre-fetched remote candidates.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionNoOp   ActionType = "noop"
)

// ProductAction is the decision for one product record. RemoteID is set
// for Update and NoOp; Fields carries the values to write for Create and
// Update.
type ProductAction struct {
	Type     ActionType
	RemoteID int64
	Fields   ProductRecord
	Measure  int
}

// ContactAction is the decision for one supplier record.
type ContactAction struct {
	Type     ActionType
	RemoteID int64
	Fields   SupplierRecord
}

// ProductMatchPolicy controls which fields participate in drift
// detection and whether detected drift may trigger a remote update.
// The raw and packaging flows compare price and measure; the purchase
// flow compares identity fields only. Some ingestion paths are read-only
// with respect to drift (AllowUpdate false), which mirrors a per-kind
// contract rather than a global rule.
type ProductMatchPolicy struct {
	ComparePrice   bool
	CompareMeasure bool
	AllowUpdate    bool
}

// PolicyForKind returns the product match policy for a record kind.
func PolicyForKind(kind RecordKind) ProductMatchPolicy {
	switch kind {
	case KindRaw, KindPackagingLabels:
		return ProductMatchPolicy{ComparePrice: true, CompareMeasure: true, AllowUpdate: true}
	case KindPurchase:
		return ProductMatchPolicy{AllowUpdate: true}
	default:
		return ProductMatchPolicy{}
	}
}

// FindProduct locates the candidate whose access id matches the record's,
// using normalized identifier equality.
func FindProduct(accessID string, candidates []RemoteProduct) (RemoteProduct, bool) {
	for _, c := range candidates {
		if EqualAccessID(c.AccessID, accessID) {
			return c, true
		}
	}
	return RemoteProduct{}, false
}

// FindContact locates the candidate contact for a supplier access id.
func FindContact(accessID string, candidates []RemoteContact) (RemoteContact, bool) {
	for _, c := range candidates {
		if EqualAccessID(c.AccessID, accessID) {
			return c, true
		}
	}
	return RemoteContact{}, false
}

// MatchProduct decides create/update/no-op for one product record
// against the candidate set. Candidates are fetched once per request
// batch by the caller; new products created earlier in the same request
// must be appended to the candidate slice so later records see them.
func MatchProduct(rec ProductRecord, candidates []RemoteProduct, policy ProductMatchPolicy) ProductAction {
	measure := MeasureCode(rec.Unit)

	candidate, ok := FindProduct(rec.AccessID, candidates)
	if !ok {
		return ProductAction{Type: ActionCreate, Fields: rec, Measure: measure}
	}

	drift := !EqualFolded(candidate.Name, rec.Name) ||
		!EqualAccessID(candidate.AccessID, rec.AccessID)
	if policy.ComparePrice {
		drift = drift || !EqualRounded(candidate.Price, rec.Price)
	}
	if policy.CompareMeasure {
		drift = drift || candidate.Measure != measure
	}

	if drift && policy.AllowUpdate {
		return ProductAction{Type: ActionUpdate, RemoteID: candidate.ID, Fields: rec, Measure: measure}
	}
	return ProductAction{Type: ActionNoOp, RemoteID: candidate.ID, Fields: rec, Measure: measure}
}

// MatchContact decides create/update/no-op for one supplier record.
// Supplier drift covers name and access id only.
func MatchContact(rec SupplierRecord, candidates []RemoteContact) ContactAction {
	candidate, ok := FindContact(rec.AccessID, candidates)
	if !ok {
		return ContactAction{Type: ActionCreate, Fields: rec}
	}

	drift := !EqualFolded(candidate.Name, rec.Name) ||
		!EqualAccessID(candidate.AccessID, rec.AccessID)
	if drift {
		return ContactAction{Type: ActionUpdate, RemoteID: candidate.ID, Fields: rec}
	}
	return ContactAction{Type: ActionNoOp, RemoteID: candidate.ID, Fields: rec}
}
