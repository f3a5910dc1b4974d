package catalog

import (
	"reflect"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bobmcallan/iris-mcp/internal/common"
)

func testLogger() *common.Logger {
	return common.NewSilentLogger()
}

func loadDoc(t *testing.T, data string) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(data))
	if err != nil {
		t.Fatalf("Failed to load test document: %v", err)
	}
	return doc
}

const petstoreDoc = `{
  "openapi": "3.0.0",
  "info": {"title": "petstore", "version": "1.0.0"},
  "paths": {
    "/health": {
      "get": {"summary": "Liveness probe"}
    },
    "/pets/{petId}": {
      "parameters": [
        {"name": "petId", "in": "path", "required": true, "schema": {"type": "string"}},
        {"name": "X-Tenant", "in": "header", "schema": {"type": "string"}}
      ],
      "get": {
        "operationId": "getPetById",
        "summary": "Fetch a pet",
        "parameters": [
          {"name": "verbose", "in": "query", "schema": {"type": "boolean"}},
          {"name": "X-Tenant", "in": "header", "required": true, "schema": {"type": "integer"}}
        ]
      },
      "delete": {}
    },
    "/pets": {
      "post": {
        "operationId": "createPet",
        "requestBody": {
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["name"],
                "properties": {
                  "name": {"type": "string"},
                  "age": {"type": "integer"},
                  "tag": {"type": "string", "enum": ["cat", "dog"]}
                }
              }
            }
          }
        }
      }
    },
    "/broken/{id}": {
      "get": {"summary": "Path parameter is never declared"}
    }
  }
}`

func extractPetstore(t *testing.T) map[string]Tool {
	t.Helper()
	tools := Extract(loadDoc(t, petstoreDoc), ExtractOptions{}, testLogger())
	byName := make(map[string]Tool, len(tools))
	for _, ct := range tools {
		byName[ct.Name] = ct
	}
	return byName
}

func TestExtract_OneDescriptorPerOperation(t *testing.T) {
	tools := Extract(loadDoc(t, petstoreDoc), ExtractOptions{}, testLogger())

	// 5 operations minus the one with an undeclared path parameter
	if len(tools) != 4 {
		t.Fatalf("Expected 4 descriptors, got %d", len(tools))
	}
	for _, ct := range tools {
		if ct.Path == "/broken/{id}" {
			t.Errorf("Malformed operation %s should have been skipped", ct.Name)
		}
	}
}

func TestExtract_MalformedOperationDoesNotAbortDocument(t *testing.T) {
	byName := extractPetstore(t)

	// Operations around the broken one still compile
	for _, name := range []string{"get_health", "get_pet_by_id", "delete_pets_pet_id", "create_pet"} {
		if _, ok := byName[name]; !ok {
			t.Errorf("Expected descriptor %s to survive the malformed sibling", name)
		}
	}
}

func TestExtract_NoArgOperation(t *testing.T) {
	byName := extractPetstore(t)

	health, ok := byName["get_health"]
	if !ok {
		t.Fatal("Expected get_health descriptor")
	}
	if len(health.Params) != 0 {
		t.Errorf("Expected no params for /health, got %d", len(health.Params))
	}
	if health.Description != "Liveness probe" {
		t.Errorf("Expected summary as description, got %q", health.Description)
	}
}

func TestExtract_MergesPathAndOperationParams(t *testing.T) {
	byName := extractPetstore(t)

	get, ok := byName["get_pet_by_id"]
	if !ok {
		t.Fatal("Expected get_pet_by_id descriptor")
	}
	if len(get.Params) != 3 {
		t.Fatalf("Expected 3 params (petId, X-Tenant, verbose), got %d: %+v", len(get.Params), get.Params)
	}

	params := map[string]Param{}
	for _, p := range get.Params {
		params[p.Name] = p
	}

	petID := params["petId"]
	if petID.In != "path" || !petID.Required {
		t.Errorf("Expected petId as required path param, got %+v", petID)
	}

	// Operation-level declaration wins on the (name, location) collision
	tenant := params["X-Tenant"]
	if tenant.Type != "integer" || !tenant.Required {
		t.Errorf("Expected operation-level X-Tenant override (integer, required), got %+v", tenant)
	}

	verbose := params["verbose"]
	if verbose.In != "query" || verbose.Required {
		t.Errorf("Expected verbose as optional query param, got %+v", verbose)
	}
}

func TestExtract_PathLevelParamsApplyToEveryMethod(t *testing.T) {
	byName := extractPetstore(t)

	del, ok := byName["delete_pets_pet_id"]
	if !ok {
		t.Fatal("Expected delete_pets_pet_id descriptor")
	}
	names := map[string]bool{}
	for _, p := range del.Params {
		names[p.Name] = true
	}
	if !names["petId"] || !names["X-Tenant"] {
		t.Errorf("Expected inherited path-level params, got %+v", del.Params)
	}
}

func TestExtract_BodyPropertiesFlattened(t *testing.T) {
	byName := extractPetstore(t)

	create, ok := byName["create_pet"]
	if !ok {
		t.Fatal("Expected create_pet descriptor")
	}

	var gotNames []string
	params := map[string]Param{}
	for _, p := range create.Params {
		gotNames = append(gotNames, p.Name)
		params[p.Name] = p
		if p.In != "body" {
			t.Errorf("Expected body location for %s, got %s", p.Name, p.In)
		}
	}
	// Sorted for deterministic schemas
	if !reflect.DeepEqual(gotNames, []string{"age", "name", "tag"}) {
		t.Errorf("Expected sorted body params [age name tag], got %v", gotNames)
	}
	if !params["name"].Required {
		t.Error("Expected name to mirror the schema's required list")
	}
	if params["age"].Required || params["tag"].Required {
		t.Error("Expected age and tag to be optional")
	}
	if !reflect.DeepEqual(params["tag"].Enum, []string{"cat", "dog"}) {
		t.Errorf("Expected tag enum [cat dog], got %v", params["tag"].Enum)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	doc := loadDoc(t, petstoreDoc)

	first := Extract(doc, ExtractOptions{}, testLogger())
	second := Extract(doc, ExtractOptions{}, testLogger())

	if !reflect.DeepEqual(first, second) {
		t.Error("Re-extraction of the same document must yield identical descriptors")
	}
}

func TestExtract_DeclareAuthParam(t *testing.T) {
	doc := loadDoc(t, `{
	  "openapi": "3.0.0",
	  "info": {"title": "t", "version": "1"},
	  "paths": {
	    "/auth/login": {"post": {}},
	    "/pets": {"get": {}}
	  }
	}`)

	tools := Extract(doc, ExtractOptions{DeclareAuthParam: true, AuthBypass: "/auth"}, testLogger())

	hasAuthParam := func(ct Tool) bool {
		for _, p := range ct.Params {
			if p.Name == "authorization" && p.In == "header" {
				return true
			}
		}
		return false
	}

	for _, ct := range tools {
		switch ct.Path {
		case "/auth/login":
			if hasAuthParam(ct) {
				t.Error("Bypassed operation should not declare an authorization argument")
			}
		case "/pets":
			if !hasAuthParam(ct) {
				t.Error("Non-bypassed operation should declare an authorization argument")
			}
		}
	}
}

func TestToolName(t *testing.T) {
	tests := []struct {
		method, path, operationID, want string
	}{
		{"GET", "/pets/{petId}", "", "get_pets_pet_id"},
		{"GET", "/pets/{petId}", "getPetById", "get_pet_by_id"},
		{"POST", "/user-profile/sync", "", "post_user_profile_sync"},
		{"DELETE", "/a/b", "", "delete_a_b"},
		{"GET", "/items", "listAll2", "list_all2"},
		{"PUT", "/v1.2/items", "", "put_v1_2_items"},
	}

	for _, tt := range tests {
		got := ToolName(tt.method, tt.path, tt.operationID)
		if got != tt.want {
			t.Errorf("ToolName(%s, %s, %q) = %q, want %q", tt.method, tt.path, tt.operationID, got, tt.want)
		}
	}
}

func TestToolName_DistinctOperationsDoNotCollide(t *testing.T) {
	a := ToolName("GET", "/pets", "")
	b := ToolName("POST", "/pets", "")
	if a == b {
		t.Errorf("Expected distinct names for distinct methods, both %q", a)
	}
}
