package resource

var Students = Resource{
	Name:       "students",
	From:       "students s",
	Permission: "students_view",
	Key:        "id",
	Columns: []Column{
		{Name: "id", Expr: "s.id", Sortable: true},
		{Name: "admission_no", Expr: "s.admission_no", Searchable: true, Sortable: true, Filterable: true},
		{Name: "first_name", Expr: "s.first_name", Searchable: true, Sortable: true},
		{Name: "last_name", Expr: "s.last_name", Searchable: true, Sortable: true},
		{Name: "class_name", Expr: "s.class_name", Sortable: true, Filterable: true},
		{Name: "gender", Expr: "s.gender", Filterable: true},
		{Name: "status", Expr: "s.status", Sortable: true, Filterable: true},
		{Name: "is_boarder", Expr: "s.is_boarder", Filterable: true},
		{Name: "fee_balance", Expr: "s.fee_balance::float8", Sortable: true},
		{Name: "admitted_on", Expr: "s.admitted_on", Sortable: true},
		{Name: "guardian", Expr: "json_build_object('name', s.guardian_name, 'phone', s.guardian_phone)"},
	},
	DefaultSort: "last_name",
}

var Staff = Resource{
	Name:       "staff",
	From:       "staff st",
	Permission: "staff_view",
	Key:        "id",
	Columns: []Column{
		{Name: "id", Expr: "st.id", Sortable: true},
		{Name: "staff_no", Expr: "st.staff_no", Searchable: true, Sortable: true, Filterable: true},
		{Name: "first_name", Expr: "st.first_name", Searchable: true, Sortable: true},
		{Name: "last_name", Expr: "st.last_name", Searchable: true, Sortable: true},
		{Name: "role", Expr: "st.role", Sortable: true, Filterable: true},
		{Name: "department", Expr: "st.department", Searchable: true, Sortable: true, Filterable: true},
		{Name: "email", Expr: "st.email", Searchable: true},
		{Name: "status", Expr: "st.status", Sortable: true, Filterable: true},
		{Name: "attendance_rate", Expr: "st.attendance_rate::float8", Sortable: true},
		{Name: "hired_on", Expr: "st.hired_on", Sortable: true},
	},
	DefaultSort: "last_name",
}

var Payments = Resource{
	Name:       "payments",
	From:       "fee_payments p JOIN students s ON s.id = p.student_id",
	Permission: "payments_view",
	Key:        "id",
	Columns: []Column{
		{Name: "id", Expr: "p.id", Sortable: true},
		{Name: "receipt_no", Expr: "p.receipt_no", Searchable: true, Sortable: true},
		{Name: "student_id", Expr: "p.student_id", Filterable: true},
		{Name: "student", Expr: "s.first_name || ' ' || s.last_name", Searchable: true, Sortable: true},
		{Name: "admission_no", Expr: "s.admission_no", Searchable: true, Filterable: true},
		{Name: "term", Expr: "p.term", Sortable: true, Filterable: true},
		{Name: "amount", Expr: "p.amount::float8", Sortable: true},
		{Name: "method", Expr: "p.method", Filterable: true},
		{Name: "status", Expr: "p.status", Sortable: true, Filterable: true},
		{Name: "paid_at", Expr: "p.paid_at", Sortable: true},
	},
	DefaultSort: "paid_at",
	DefaultDesc: true,
}

// Default returns the registry of every school resource.
func Default() *Registry {
	reg, err := NewRegistry(Students, Staff, Payments)
	if err != nil {
		panic(err)
	}
	return reg
}
