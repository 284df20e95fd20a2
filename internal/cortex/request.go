// File path: internal/cortex/request.go
package cortex

import (
	"fmt"
	"net/url"
	"strings"
)

// Entity types addressed through the DataTable API.
const (
	EntityProgram      = "Documents.Virtual-folder.Program"
	EntityProgramWork  = "Documents.Virtual-Folder.Program-work"
	EntityWork         = "Documents.Virtual-folder.Work"
	EntitySeason       = "Documents.Virtual-folder.Season"
	EntityPrintedMusic = "Documents.Folder.Printed-Music"
	EntityScore        = "Documents.Folder.Score"
	EntityPart         = "Documents.Folder.Part"
	EntityBusinessDoc  = "Documents.Folder.Business-document"
	EntityArchivesBox  = "Documents.Folder.Archives-Box"
	EntitySource       = "Contacts.Source.Default"
	EntityAllDocuments = "Documents.All"
)

// DataTable actions.
const (
	ActionCreate         = "Create"
	ActionCreateOrUpdate = "CreateOrUpdate"
	ActionUpdate         = "Update"
	ActionRead           = "Read"
)

type opKind int

const (
	opKey opKind = iota
	opSet
	opAppendValue
	opClear
	opLink
	opPaired
)

// FieldOp is one typed field operation. The wire grammar distinguishes
// "identify by natural key", "set scalar", "append to multi-valued",
// "clear multi-valued", "link by foreign natural key" and "paired
// value"; the serialization below owns all escaping so reconciliation
// code never builds query strings by hand.
type FieldOp struct {
	kind    opKind
	field   string
	value   string
	keyword string

	linkEntity string
	linkField  string
}

// Key identifies the record by its natural/legacy identifier.
func Key(field, value string) FieldOp {
	return FieldOp{kind: opKey, field: field, value: value}
}

// Set assigns a scalar field.
func Set(field, value string) FieldOp {
	return FieldOp{kind: opSet, field: field, value: value}
}

// Append appends one value to a multi-valued field.
func Append(field, value string) FieldOp {
	return FieldOp{kind: opAppendValue, field: field, value: value}
}

// Clear removes every value from a multi-valued field. Reconciliation
// issues clears strictly before the matching appends.
func Clear(field string) FieldOp {
	return FieldOp{kind: opClear, field: field}
}

// Link appends a reference to a record of another entity type,
// addressed by that type's natural key field.
func Link(field, entity, keyField, keyValue string) FieldOp {
	return FieldOp{kind: opLink, field: field, linkEntity: entity, linkField: keyField, value: keyValue}
}

// SetLink assigns a scalar reference (such as the parent folder).
func SetLink(field, entity, keyField, keyValue string) FieldOp {
	op := Link(field, entity, keyField, keyValue)
	op.kind = opSet
	return op
}

// Paired appends a value with a linked keyword, the DAM's paired-value
// field idiom.
func Paired(field, value, keyword string) FieldOp {
	return FieldOp{kind: opPaired, field: field, value: value, keyword: keyword}
}

// IsClear reports whether the op clears a multi-valued field.
func (op FieldOp) IsClear() bool { return op.kind == opClear }

// Field returns the target field name.
func (op FieldOp) Field() string { return op.field }

func (op FieldOp) bracket() string {
	return fmt.Sprintf("[%s:%s=%s]", op.linkEntity, op.linkField, op.value)
}

func (op FieldOp) encode() string {
	switch op.kind {
	case opKey:
		return op.field + "=" + escape(op.value)
	case opSet:
		if op.linkEntity != "" {
			return op.field + ":=" + escape(op.bracket())
		}
		return op.field + ":=" + escape(op.value)
	case opAppendValue:
		return op.field + "++=" + escape(op.value)
	case opClear:
		return op.field + "--="
	case opLink:
		return op.field + "+=" + escape(op.bracket())
	case opPaired:
		return op.field + "++=" + escape(op.value+"{'LinkedKeyword':'"+op.keyword+"'}")
	default:
		return ""
	}
}

// formKey renders the field name with its operator suffix for
// form-encoded bodies, where the suffix rides on the key.
func (op FieldOp) formKey() string {
	switch op.kind {
	case opKey:
		return op.field
	case opSet:
		return op.field + ":"
	case opAppendValue:
		return op.field + "++"
	case opClear:
		return op.field + "--"
	case opLink:
		return op.field + "+"
	case opPaired:
		return op.field + "++"
	default:
		return op.field
	}
}

func (op FieldOp) formValue() string {
	switch op.kind {
	case opLink:
		return op.bracket()
	case opSet:
		if op.linkEntity != "" {
			return op.bracket()
		}
		return op.value
	case opPaired:
		return op.value + "{'LinkedKeyword':'" + op.keyword + "'}"
	default:
		return op.value
	}
}

func escape(value string) string {
	return url.QueryEscape(value)
}

// Request is one DataTable call: an entity type, an action, and the
// field operations to apply, keyed by the record's natural identifier.
type Request struct {
	Entity string
	Action string
	Ops    []FieldOp

	// FormBody sends the ops as a form-encoded body rather than on the
	// query string; required when values may exceed the URL length the
	// DAM accepts.
	FormBody bool
}

// NewRequest starts a request for entity/action.
func NewRequest(entity, action string, ops ...FieldOp) *Request {
	return &Request{Entity: entity, Action: action, Ops: ops}
}

// WithFormBody marks the request for form-encoded delivery.
func (r *Request) WithFormBody() *Request {
	r.FormBody = true
	return r
}

// Add appends field operations.
func (r *Request) Add(ops ...FieldOp) *Request {
	r.Ops = append(r.Ops, ops...)
	return r
}

// QueryPath renders "Entity:Action?op&op..." for query-string delivery.
func (r *Request) QueryPath() string {
	var sb strings.Builder
	sb.WriteString(r.Entity)
	sb.WriteString(":")
	sb.WriteString(r.Action)
	for idx, op := range r.Ops {
		if idx == 0 {
			sb.WriteString("?")
		} else {
			sb.WriteString("&")
		}
		sb.WriteString(op.encode())
	}
	return sb.String()
}

// ActionPath renders "Entity:Action" for form-body delivery.
func (r *Request) ActionPath() string {
	return r.Entity + ":" + r.Action
}

// Form renders the ops as form values for form-body delivery.
func (r *Request) Form() url.Values {
	values := url.Values{}
	for _, op := range r.Ops {
		values.Add(op.formKey(), op.formValue())
	}
	return values
}
