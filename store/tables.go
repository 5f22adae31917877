package store

import (
	"fmt"
	"strings"

	"edi835/remit"
	"edi835/x12"
)

type valueKind int

const (
	kindText valueKind = iota
	kindDate           // CCYYMMDD
	kindTime           // HHMM[SS[D[D]]]
)

type column struct {
	name string
	path x12.Path
	kind valueKind
}

// segmentTable maps segment elements to columns. Composite elements are
// not listed, they go to composite tables.
type segmentTable struct {
	segment string
	columns []column
}

func (t *segmentTable) table() string {
	return segmentTableName(t.segment)
}

func segmentTableName(segment string) string {
	return "x12_" + strings.ToLower(segment)
}

// seq assigns elements 1, 2, ... to names, empty name skips the element.
func seq(names ...string) []column {
	cols := make([]column, 0, len(names))
	for i, n := range names {
		if n == "" {
			continue
		}
		cols = append(cols, column{name: n, path: x12.Elem(i + 1)})
	}
	return cols
}

// as changes kind of named columns.
func as(kind valueKind, cols []column, names ...string) []column {
	for i := range cols {
		for _, n := range names {
			if cols[i].name == n {
				cols[i].kind = kind
			}
		}
	}
	return cols
}

func numbered(prefix string, from, to int) []string {
	out := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("%s_%d", prefix, i))
	}
	return out
}

func casColumns() []column {
	names := []string{"claim_adjustment_group_code"}
	for i := 1; i <= 6; i++ {
		names = append(names,
			fmt.Sprintf("claim_adjustment_reason_code_%d", i),
			fmt.Sprintf("adjustment_amount_%d", i),
			fmt.Sprintf("units_of_service_adjusted_%d", i))
	}
	return seq(names...)
}

func curColumns() []column {
	names := []string{"entity_id_code_1", "currency_code_1", "exchange_rate_1", "entity_id_code_2", "currency_code_2", "currency_market_exchange_code"}
	var dates, times []string
	for i := 1; i <= 5; i++ {
		d, t := fmt.Sprintf("date_%d", i), fmt.Sprintf("time_%d", i)
		names = append(names, fmt.Sprintf("date_time_qualifier_%d", i), d, t)
		dates, times = append(dates, d), append(times, t)
	}
	return as(kindTime, as(kindDate, seq(names...), dates...), times...)
}

// plbColumns covers six adjustment identifier/amount pairs, identifier is
// reason code and reference id components.
func plbColumns() []column {
	cols := as(kindDate, seq("provider_identifier", "fiscal_period_date"), "fiscal_period_date")
	for i := 1; i <= 6; i++ {
		el := 3 + 2*(i-1)
		cols = append(cols,
			column{name: fmt.Sprintf("adjustment_reason_code_%d", i), path: x12.Elem(el)},
			column{name: fmt.Sprintf("reference_id_%d", i), path: x12.Comp(el, 1)},
			column{name: fmt.Sprintf("provider_adjustment_amount_%d", i), path: x12.Elem(el + 1)},
		)
	}
	return cols
}

var segmentTables = []*segmentTable{
	{segment: "ST", columns: seq("id_code", "transaction_set_control", "convention_reference")},
	{segment: "BPR", columns: as(kindDate, seq(
		"transaction_handling_code", "payment_amount", "credit_debit_flag", "payment_method_code",
		"payment_format_code", "odfi_id_number_qualifier", "odfi_id_number", "payer_financial_asset_type",
		"payer_account_number", "originating_company_id", "originating_company_supplemental_code",
		"rdfi_id_number_qualifier", "rdfi_id_number", "receiver_asset_type", "receiver_account_number",
		"payment_effective_date", "reason_for_payment", "id_number_qualifier_for_returns",
		"dfi_id_number_for_returns", "asset_type_for_return_account", "account_number_for_return"),
		"payment_effective_date")},
	{segment: "NTE", columns: seq("note_reference_code", "description")},
	{segment: "TRN", columns: seq("trace_type_code", "transaction_id", "organization_id", "subdivision_id")},
	{segment: "CUR", columns: curColumns()},
	{segment: "N1", columns: seq("entity_identifier", "entity_name", "id_code_qualifier", "identification_code", "entity_relationship_code", "related_entity_identifier_code")},
	{segment: "N2", columns: seq("additional_name_1", "additional_name_2")},
	{segment: "N3", columns: seq("address_information_1", "address_information_2")},
	{segment: "N4", columns: seq("city_name", "state_or_province_code", "postal_code", "country_code", "location_qualifier", "location_id", "country_subdivision_code", "postal_code_formatted")},
	{segment: "REF", columns: seq("id_qualifier", "reference_id", "description")},
	{segment: "PER", columns: seq(
		"contact_function_code", "name",
		"communication_number_qualifier_1", "communication_number_1",
		"communication_number_qualifier_2", "communication_number_2",
		"communication_number_qualifier_3", "communication_number_3",
		"contact_inquiry_ref")},
	{segment: "RDM", columns: seq("report_transmission_code", "third_party_remittance_processor", "communication_number")},
	{segment: "DTM", columns: as(kindTime, as(kindDate, seq(
		"date_time_qualifier", "date", "time", "time_code", "date_time_period_format_qualifier", "date_time_period"),
		"date"), "time")},
	{segment: "LX", columns: seq("assigned_number")},
	{segment: "TS3", columns: as(kindDate, seq(
		"provider_number", "facility_code_value", "fiscal_year_end_date", "number_of_claims",
		"total_reported_charges", "total_covered_charge", "total_noncovered_charges", "total_denied_charges",
		"total_provider_payment", "total_interest_paid", "total_contractual_adjustment",
		"total_gramm_rudman_reduction", "total_msp_primary_payer_amount", "total_blood_deductible_amount",
		"non_lab_charges", "total_coinsurance_amount", "hcpcs_reported_charges", "total_hcpcs_payable_amount",
		"total_deductible_amount", "total_professional_component_amount", "total_msp_patient_liability_met",
		"total_patient_reimbursement", "total_pip_number_of_claims", "total_pip_adjustment"),
		"fiscal_year_end_date")},
	{segment: "TS2", columns: seq(
		"total_drg_amount", "total_federal_specific_amount", "total_hospital_specific_amount",
		"total_disproportionate_share_amount", "total_capital_amount", "total_medical_education_amount",
		"total_number_of_outlier_days", "total_outlier_amount", "total_cost_outlier_amount",
		"drg_average_length_of_stay", "total_number_of_discharges", "total_number_of_cost_report_days",
		"total_number_of_covered_days", "total_number_of_noncovered_days",
		"total_msp_pass_through_for_non_medicare", "average_drg_weight",
		"total_pps_capital_federal_specific_drg_amount", "total_pps_capital_hospital_specific_drg_amount",
		"total_pps_disproportionate_share_hospital_drg_amount")},
	{segment: "CLP", columns: seq(
		"claim_submitter_id", "claim_status_code", "submitted_charges", "amount_paid",
		"patient_responsibility", "claim_filing_indicator_code", "payer_internal_control_number",
		"facility_code_value", "claim_frequency_type_code", "patient_discharge_status", "",
		"drg_weight", "discharge_fraction", "patient_authorization_to_coordinate_benefits",
		"exchange_rate", "source_of_payment_typology_code")},
	{segment: "CAS", columns: casColumns()},
	{segment: "NM1", columns: seq(
		"entity_id_code", "entity_type_qualifier", "last_name_or_organization_name", "first_name",
		"middle_name", "name_prefix", "name_suffix", "id_code_qualifier", "id_code",
		"entity_relationship_code", "entity_id_code_2", "last_name_or_organization_name_2")},
	{segment: "MIA", columns: seq(
		"covered_days", "pps_operating_outlier_amount", "lifetime_psychiatric_days", "drg_amount",
		"remittance_advice_remark_code_1", "disproportionate_share_amount", "msp_pass_through_amount",
		"pps_capital_amount", "pps_capital_federal_specific_drg", "pps_capital_hospital_specific_drg",
		"pps_capital_disproportionate_share_hospital_drg", "old_capital_amount",
		"pps_capital_indirect_medical_education_claim", "hospital_specific_drg_amount", "cost_report_days",
		"federal_specific_drg_amount", "pps_capital_outlier_amount", "indirect_teaching_amount",
		"professional_component_non_payable_amount_billed", "remittance_advice_remark_code_2",
		"remittance_advice_remark_code_3", "remittance_advice_remark_code_4",
		"remittance_advice_remark_code_5", "capital_exception_amount")},
	{segment: "MOA", columns: seq(
		"reimbursement_rate", "hcpcs_payable_amount", "remittance_advice_remark_code_1",
		"remittance_advice_remark_code_2", "remittance_advice_remark_code_3",
		"remittance_advice_remark_code_4", "remittance_advice_remark_code_5", "esrd_payment_amount",
		"professional_component_non_payable_billed")},
	{segment: "AMT", columns: seq("amount_qualifier_code", "monetary_amount", "credit_debit_flag")},
	{segment: "QTY", columns: seq("quantity_qualifier", "quantity", "", "free_form_information")},
	{segment: "LQ", columns: seq("code_list_qualifier_code", "industry_code")},
	{segment: "RAS", columns: seq("amount_of_adjustment", "claim_adjustment_group_code", "", "units_of_service_adjusted")},
	{segment: "K3", columns: seq("fixed_format_information", "record_format_code")},
	{segment: "SVC", columns: seq(
		"", "line_item_charge_amount", "line_item_provider_payment_amount", "revenue_code",
		"units_of_service_paid_count", "", "original_units_of_service_count")},
	{segment: "PLB", columns: plbColumns()},
	{segment: "SE", columns: seq("number_of_included_segments", "transaction_set_control_number")},
}

// compositeTables lists component columns of composite elements, component
// m goes to column m-1.
var compositeTables = map[string][]string{
	"C001": {
		"units_1", "exponent_1", "multiplier_1",
		"units_2", "exponent_2", "multiplier_2",
		"units_3", "exponent_3", "multiplier_3",
		"units_4", "exponent_4", "multiplier_4",
		"units_5", "exponent_5", "multiplier_5",
	},
	"C003": append([]string{"product_service_id_qualifier", "product_service_id"},
		append(numbered("procedure_modifier", 1, 4), "description", "product_service_id_2")...),
	"C022": {
		"code_list_qualifier_code", "industry_code", "date_time_period_format_qualifier",
		"date_time_period", "monetary_amount", "quantity", "code_list_version_id", "code_ending_value",
		"present_on_admission_indicator", "industry_attribute_code",
	},
	"C040": {"id_qualifier_1", "id_1", "id_qualifier_2", "id_2", "id_qualifier_3", "id_3"},
	"C058": append([]string{"adjustment_reason_code", "adjustment_code_list_qualifier_code"},
		numbered("industry_code", 1, 5)...),
}

func compositeTableName(id string) string {
	return "x12_" + strings.ToLower(id)
}

var loopTables = map[remit.Level]string{
	remit.LevelHeader: "x12_header",
	remit.Level1000:   "x12_1000",
	remit.Level2000:   "x12_2000",
	remit.Level2100:   "x12_2100",
	remit.Level2105:   "x12_2105",
	remit.Level2110:   "x12_2110",
}

// loopOrder is also creation order, parents first.
var loopOrder = []remit.Level{
	remit.LevelHeader, remit.Level1000, remit.Level2000, remit.Level2100, remit.Level2105, remit.Level2110,
}

// parentTable returns table name stored in parent_type column.
func parentTable(k remit.ParentKind) string {
	switch k {
	case remit.Parent1000:
		return loopTables[remit.Level1000]
	case remit.Parent2000:
		return loopTables[remit.Level2000]
	case remit.Parent2100:
		return loopTables[remit.Level2100]
	case remit.Parent2105:
		return loopTables[remit.Level2105]
	case remit.Parent2110:
		return loopTables[remit.Level2110]
	case remit.ParentN1:
		return segmentTableName("N1")
	default:
		return loopTables[remit.LevelHeader]
	}
}

func lookupSegment(name string) (*segmentTable, bool) {
	for _, t := range segmentTables {
		if t.segment == name {
			return t, true
		}
	}
	return nil, false
}

// schema returns DDL script creating all tables.
func schema() string {
	var b strings.Builder

	for _, l := range loopOrder {
		name := loopTables[l]
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n  id INTEGER PRIMARY KEY AUTOINCREMENT,\n  segment_order INTEGER NOT NULL", name)
		if l == remit.LevelHeader {
			b.WriteString(",\n  load_id TEXT NOT NULL,\n  source TEXT,\n  created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))")
		}
		if p, ok := l.Parent(); ok {
			parent := loopTables[p]
			fmt.Fprintf(&b, ",\n  %s_id INTEGER NOT NULL REFERENCES %s(id) ON DELETE CASCADE", parent, parent)
		}
		b.WriteString("\n);\n")
	}

	for _, t := range segmentTables {
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n  id INTEGER PRIMARY KEY AUTOINCREMENT,\n  segment_order INTEGER NOT NULL,\n  parent_type TEXT NOT NULL,\n  parent_id INTEGER NOT NULL", t.table())
		for _, c := range t.columns {
			fmt.Fprintf(&b, ",\n  %s TEXT", c.name)
		}
		b.WriteString("\n);\n")
		fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s_parent ON %s(parent_type, parent_id);\n", t.table(), t.table())
	}

	for _, id := range compositeIDs() {
		name := compositeTableName(id)
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n  id INTEGER PRIMARY KEY AUTOINCREMENT,\n  segment_order INTEGER NOT NULL,\n  parent_type TEXT NOT NULL,\n  parent_id INTEGER NOT NULL,\n  element INTEGER NOT NULL", name)
		for _, c := range compositeTables[id] {
			fmt.Fprintf(&b, ",\n  %s TEXT", c)
		}
		b.WriteString("\n);\n")
		fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s_parent ON %s(parent_type, parent_id);\n", name, name)
	}
	return b.String()
}

func compositeIDs() []string {
	return []string{"C001", "C003", "C022", "C040", "C058"}
}

// Tables returns names of all tables created by the store.
func Tables() []string {
	out := make([]string, 0, len(loopOrder)+len(segmentTables)+len(compositeTables))
	for _, l := range loopOrder {
		out = append(out, loopTables[l])
	}
	for _, t := range segmentTables {
		out = append(out, t.table())
	}
	for _, id := range compositeIDs() {
		out = append(out, compositeTableName(id))
	}
	return out
}
