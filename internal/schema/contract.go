// Package schema defines the fixed relational contract the cleaned incident
// export is projected onto before load.
//
// The contract is a constant: it is never inferred from the source data. The
// transformer pads or trims every export to exactly these columns, in this
// order, and the storage backends derive their DDL from it.
package schema

import "koboetl/internal/ddl"

// Kind is the logical type of a target column.
type Kind string

const (
	KindTimestamp Kind = "timestamp"
	KindDate      Kind = "date"
	KindText      Kind = "text"
	KindInt       Kind = "int"
	KindFloat     Kind = "float"
)

// Logical column names, as they appear in the export after header
// normalization.
const (
	Start               = "start"
	End                 = "end"
	Date                = "Date"
	Country             = "Country"
	Event               = "Event"
	Oblast              = "Oblast"
	Casualties          = "Casualties"
	Injured             = "Injured"
	Captured            = "Captured"
	CivilianCasualities = "Civilian_Casualities"
	NewRecruits         = "New_Recruits"
	TerritoryStatus     = "Territory_Status"
	PercentageOccupied  = "Percentage_Occupied"
	AreaOccupied        = "Area_Occupied"
	TotalCasualties     = "Total_Casualties"
)

// IdentityColumn is the surrogate key added by the sink; it never appears in
// load rows.
const IdentityColumn = "id"

// Field is one column of the contract.
type Field struct {
	// Name is the normalized export header that feeds this column.
	Name string
	// Column is the destination column name.
	Column string
	Kind   Kind
}

// Contract is an ordered list of fields.
type Contract struct {
	Name   string
	Fields []Field
}

// Target is the incident table contract. Order is significant.
var Target = Contract{
	Name: "conflict_incidents",
	Fields: []Field{
		{Name: Start, Column: "start", Kind: KindTimestamp},
		{Name: End, Column: "end", Kind: KindTimestamp},
		{Name: Date, Column: "date", Kind: KindDate},
		{Name: Country, Column: "country", Kind: KindText},
		{Name: Event, Column: "event", Kind: KindText},
		{Name: Oblast, Column: "oblast", Kind: KindText},
		{Name: Casualties, Column: "casualties", Kind: KindInt},
		{Name: Injured, Column: "injured", Kind: KindInt},
		{Name: Captured, Column: "captured", Kind: KindInt},
		{Name: CivilianCasualities, Column: "civilian_casualities", Kind: KindInt},
		{Name: NewRecruits, Column: "new_recruits", Kind: KindInt},
		{Name: TerritoryStatus, Column: "territory_status", Kind: KindText},
		{Name: PercentageOccupied, Column: "percentage_occupied", Kind: KindFloat},
		{Name: AreaOccupied, Column: "area_occupied", Kind: KindInt},
		{Name: TotalCasualties, Column: "total_casualties", Kind: KindInt},
	},
}

// CasualtyInputs are the columns summed into TotalCasualties.
var CasualtyInputs = []string{Casualties, Injured, Captured}

// Names returns the logical field names in contract order.
func (c Contract) Names() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// Columns returns the destination column names in contract order.
func (c Contract) Columns() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Column
	}
	return out
}

// Index returns the position of the field with the given logical name.
func (c Contract) Index(name string) (int, bool) {
	for i, f := range c.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return -1, false
}

// TableDef builds the backend-neutral definition of the destination table:
// the identity column followed by every contract field, all nullable.
func (c Contract) TableDef(fqn string) ddl.TableDef {
	cols := make([]ddl.ColumnDef, 0, len(c.Fields)+1)
	cols = append(cols, ddl.ColumnDef{
		Name:       IdentityColumn,
		Kind:       ddl.KindIdentity,
		PrimaryKey: true,
	})
	for _, f := range c.Fields {
		cols = append(cols, ddl.ColumnDef{
			Name:     f.Column,
			Kind:     string(f.Kind),
			Nullable: true,
		})
	}
	return ddl.TableDef{FQN: fqn, Columns: cols}
}
