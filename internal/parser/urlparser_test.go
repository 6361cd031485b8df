package parser

import (
	"errors"
	"reflect"
	"testing"

	"github.com/prospectio/prospect/internal/domain"
)

func TestParseQueryString_RoundTrip(t *testing.T) {
	parsed, err := ParseQueryString("sort=company:desc&query=(name:List(Acme,Globex))")
	if err != nil {
		t.Fatalf("ParseQueryString: %v", err)
	}

	wantSort := []SortField{{Field: "company", Direction: "desc"}}
	if !reflect.DeepEqual(parsed.Sort, wantSort) {
		t.Errorf("Sort = %+v, want %+v", parsed.Sort, wantSort)
	}
	want := map[string]any{"name": []string{"Acme", "Globex"}}
	if !reflect.DeepEqual(parsed.Variables, want) {
		t.Errorf("Variables = %+v, want %+v", parsed.Variables, want)
	}
}

func TestParseSort_CommaList(t *testing.T) {
	parsed, err := ParseQueryString("sort=name:asc,size:desc")
	if err != nil {
		t.Fatalf("ParseQueryString: %v", err)
	}
	want := []SortField{{Field: "name", Direction: "asc"}, {Field: "size", Direction: "desc"}}
	if !reflect.DeepEqual(parsed.Sort, want) {
		t.Errorf("Sort = %+v, want %+v", parsed.Sort, want)
	}
}

func TestParseSort_IndexedArrayForm(t *testing.T) {
	parsed, err := ParseQueryString("sort%5B0%5D=name:asc&sort%5B1%5D=size:desc")
	if err != nil {
		t.Fatalf("ParseQueryString: %v", err)
	}
	want := []SortField{{Field: "name", Direction: "asc"}, {Field: "size", Direction: "desc"}}
	if !reflect.DeepEqual(parsed.Sort, want) {
		t.Errorf("Sort = %+v, want %+v", parsed.Sort, want)
	}
}

func TestParseSort_IndexedOrdersNumerically(t *testing.T) {
	// sort[10] must come after sort[2], not before.
	parsed, err := ParseQueryString("sort%5B10%5D=c:asc&sort%5B2%5D=b:asc&sort%5B0%5D=a:asc")
	if err != nil {
		t.Fatalf("ParseQueryString: %v", err)
	}
	want := []SortField{
		{Field: "a", Direction: "asc"},
		{Field: "b", Direction: "asc"},
		{Field: "c", Direction: "asc"},
	}
	if !reflect.DeepEqual(parsed.Sort, want) {
		t.Errorf("Sort = %+v, want %+v", parsed.Sort, want)
	}
}

func TestParseSort_DefaultsDirection(t *testing.T) {
	parsed, err := ParseQueryString("sort=name")
	if err != nil {
		t.Fatalf("ParseQueryString: %v", err)
	}
	if len(parsed.Sort) != 1 || parsed.Sort[0].Direction != "asc" {
		t.Errorf("Sort = %+v, want direction asc", parsed.Sort)
	}
}

func TestDecodeQuery_JSONSniff(t *testing.T) {
	vars, err := DecodeQuery(`{"name":["Acme"],"term":"cloud"}`)
	if err != nil {
		t.Fatalf("DecodeQuery: %v", err)
	}
	if vars["term"] != "cloud" {
		t.Errorf("term = %v, want cloud", vars["term"])
	}
	if _, ok := vars["name"].([]any); !ok {
		t.Errorf("name = %#v, want JSON array", vars["name"])
	}
}

func TestDecodeQuery_LegacyNested(t *testing.T) {
	vars, err := DecodeQuery("(term:cloud,location:(country:DE,city:Berlin),tech:List(React,Vue))")
	if err != nil {
		t.Fatalf("DecodeQuery: %v", err)
	}
	if vars["term"] != "cloud" {
		t.Errorf("term = %v", vars["term"])
	}
	nested, ok := vars["location"].(map[string]any)
	if !ok {
		t.Fatalf("location = %#v, want nested map", vars["location"])
	}
	if nested["city"] != "Berlin" {
		t.Errorf("city = %v", nested["city"])
	}
	if got := vars["tech"].([]string); len(got) != 2 || got[0] != "React" {
		t.Errorf("tech = %v", got)
	}
}

func TestDecodeQuery_PercentEscapesOnlyWhenPresent(t *testing.T) {
	vars, err := DecodeQuery("(name:Acme%20Corp,plain:50%)")
	if err != nil {
		t.Fatalf("DecodeQuery: %v", err)
	}
	if vars["name"] != "Acme Corp" {
		t.Errorf("name = %q, want decoded %q", vars["name"], "Acme Corp")
	}
	// Undecodable percent input stays verbatim.
	if vars["plain"] != "50%" {
		t.Errorf("plain = %q, want %q", vars["plain"], "50%")
	}
}

func TestDecodeQuery_Empty(t *testing.T) {
	vars, err := DecodeQuery("")
	if err != nil {
		t.Fatalf("DecodeQuery: %v", err)
	}
	if len(vars) != 0 {
		t.Errorf("vars = %v, want empty", vars)
	}
}

func TestDecodeQuery_Malformed(t *testing.T) {
	inputs := []string{
		"(name:Acme",
		"(name)",
		"(:value)",
		"(name:List(a,b)",
		"(name:Acme)trailing",
		`{"broken":`,
	}
	for _, input := range inputs {
		_, err := DecodeQuery(input)
		var parseErr *domain.ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("DecodeQuery(%q) = %v, want ParseError", input, err)
		}
	}
}
