package jsonpath

import "testing"

const sampleDoc = `{
	"name": "John Doe",
	"age": 30,
	"email": "john@example.com",
	"address": {
		"street": "123 Main St",
		"city": "Anytown",
		"zipcode": "12345"
	},
	"phones": [
		{"type": "home", "number": "555-1234"},
		{"type": "work", "number": "555-5678"}
	],
	"active": true,
	"scores": [10, 20, 30, 40],
	"metadata": null
}`

func TestExtract(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"root path", "$", sampleDoc, false},
		{"simple property", "$.name", "John Doe", false},
		{"numeric property", "$.age", "30", false},
		{"boolean property", "$.active", "true", false},
		{"nested property", "$.address.city", "Anytown", false},
		{"array element", "$.scores[1]", "20", false},
		{"object in array", "$.phones[0].number", "555-1234", false},
		{"last array element", "$.scores[3]", "40", false},
		{"null value", "$.metadata", "null", false},
		{"non-existent property", "$.nonexistent", "", true},
		{"non-existent nested property", "$.address.country", "", true},
		{"array index out of bounds", "$.scores[10]", "", true},
		{"empty path", "", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Extract(sampleDoc, tc.path)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Extract(%q): want error, got none", tc.path)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract(%q): %v", tc.path, err)
			}
			if got != tc.want {
				t.Errorf("Extract(%q) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}

	if _, err := Extract("", "$.name"); err == nil {
		t.Error("Extract with empty document: want error, got none")
	}
}

func TestExtractMultiple(t *testing.T) {
	doc := `{
		"user": {"name": "John Doe", "email": "john@example.com", "address": {"city": "Anytown"}},
		"status": "active",
		"items": [{"id": 1, "name": "Item 1"}, {"id": 2, "name": "Item 2"}]
	}`

	t.Run("all paths valid", func(t *testing.T) {
		got, err := ExtractMultiple(doc, map[string]string{
			"name":   "$.user.name",
			"email":  "$.user.email",
			"status": "$.status",
			"item":   "$.items[0].name",
		})
		if err != nil {
			t.Fatalf("ExtractMultiple: %v", err)
		}
		want := map[string]string{
			"name": "John Doe", "email": "john@example.com",
			"status": "active", "item": "Item 1",
		}
		for k, v := range want {
			if got[k] != v {
				t.Errorf("result[%s] = %q, want %q", k, got[k], v)
			}
		}
	})

	t.Run("partial failure still returns successes", func(t *testing.T) {
		got, err := ExtractMultiple(doc, map[string]string{
			"name":    "$.user.name",
			"country": "$.user.address.country",
		})
		if err == nil {
			t.Fatal("ExtractMultiple: want error for missing path, got none")
		}
		if got["name"] != "John Doe" {
			t.Errorf(`result["name"] = %q, want "John Doe"`, got["name"])
		}
	})

	t.Run("empty paths", func(t *testing.T) {
		if _, err := ExtractMultiple(doc, map[string]string{}); err == nil {
			t.Error("ExtractMultiple with no paths: want error, got none")
		}
	})

	if _, err := ExtractMultiple("", map[string]string{"name": "$.name"}); err == nil {
		t.Error("ExtractMultiple with empty document: want error, got none")
	}
}

func TestToGjsonPath(t *testing.T) {
	cases := []struct{ jsonPath, want string }{
		{"$.name", "name"},
		{"$['name']", "name"},
		{"$.user.name", "user.name"},
		{"$.items[0]", "items.0"},
		{"$.items[0].name", "items.0.name"},
		{"$.deeply.nested[0].array[1].value", "deeply.nested.0.array.1.value"},
		{"$", "@this"},
		{"$[0]", "0"},
		{"$[0].name", "0.name"},
	}
	for _, tc := range cases {
		t.Run(tc.jsonPath, func(t *testing.T) {
			if got := toGjsonPath(tc.jsonPath); got != tc.want {
				t.Errorf("toGjsonPath(%q) = %q, want %q", tc.jsonPath, got, tc.want)
			}
		})
	}
}
