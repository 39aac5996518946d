package wiseagent

import (
	"testing"
	"time"

	"github.com/estait/crmbridge/core"
)

func TestContactCreateParams(t *testing.T) {
	due := core.ContactInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "555-0100",
		Company:   "Analytical Engines",
		Source:    "referral",
		Status:    "Active",
		Rank:      core.ContactRankA,
		Address: &core.Address{
			Street:  "123 Main St",
			City:    "Austin",
			State:   "TX",
			Zip:     "78701",
			Country: "USA",
		},
		Categories: []string{"Buyer", "VIP"},
	}

	params := contactCreateParams(due)

	expectations := map[string]string{
		"requestType":   "webcontact",
		"CFirst":        "Ada",
		"CLast":         "Lovelace",
		"CEmail":        "ada@example.com",
		"HomePhone":     "555-0100",
		"Company":       "Analytical Engines",
		"Source":        "referral",
		"ContactStatus": "Active",
		"Rank":          "A",
		"AddressNumber": "123",
		"AddressStreet": "Main St",
		"City":          "Austin",
		"State":         "TX",
		"zip":           "78701",
		"country":       "USA",
		"Categories":    "Buyer;VIP",
	}
	for key, want := range expectations {
		if got := params[key]; got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	if _, present := params["MobilePhone"]; present {
		t.Errorf("empty optional field should be omitted")
	}
}

func TestContactUpdateParamsCasingAndDelimiter(t *testing.T) {
	params := contactUpdateParams("987", core.ContactInput{
		Email: "new@example.com",
		Address: &core.Address{
			Zip:     "30301",
			Country: "USA",
		},
		Categories: []string{"Seller", "Past Client"},
	})

	if params["requestType"] != "updateContact" || params["clientID"] != "987" {
		t.Fatalf("wrong discriminator params: %v", params)
	}
	if params["Zip"] != "30301" || params["Country"] != "USA" {
		t.Errorf("update must use capitalized Zip/Country: %v", params)
	}
	if _, present := params["zip"]; present {
		t.Errorf("lowercase zip belongs to creation only")
	}
	if params["AddCategories"] != "Seller,Past Client" {
		t.Errorf("AddCategories = %q", params["AddCategories"])
	}
	if _, present := params["Categories"]; present {
		t.Errorf("Categories belongs to creation only")
	}
	if _, present := params["CFirst"]; present {
		t.Errorf("unset fields must be omitted from updates")
	}
}

func TestApplyStreetVariants(t *testing.T) {
	cases := []struct {
		street     string
		wantNumber string
		wantStreet string
	}{
		{"123 Main St", "123", "Main St"},
		{"Main St", "", "Main St"},
		{"123", "123", ""},
		{"45 B Ocean Drive", "45", "B Ocean Drive"},
	}
	for _, tc := range cases {
		params := map[string]string{}
		applyStreet(params, tc.street)
		if params["AddressNumber"] != tc.wantNumber {
			t.Errorf("%q: AddressNumber = %q, want %q", tc.street, params["AddressNumber"], tc.wantNumber)
		}
		if params["AddressStreet"] != tc.wantStreet {
			t.Errorf("%q: AddressStreet = %q, want %q", tc.street, params["AddressStreet"], tc.wantStreet)
		}
	}
}

func TestDecodeContact(t *testing.T) {
	raw := map[string]any{
		"ClientID":       float64(12345),
		"CFirst":         "Grace",
		"CLast":          "Hopper",
		"CEmail":         "grace@example.com",
		"HomePhone":      "555-0101",
		"Company":        "Navy",
		"AddressNumber":  "10",
		"AddressStreet":  "Harbor Way",
		"City":           "Arlington",
		"State":          "VA",
		"Zip":            "22201",
		"Country":        "USA",
		"Source":         "import",
		"Status":         "Active",
		"Rank":           "A",
		"Categories":     `[{"name":"Buyer"},{"name":"VIP"}]`,
		"CustomData":     `[{"Key":"Birthday","Value":"12/09"},{"Key":"Team","Value":"Alpha"}]`,
		"DateAddedUTC":   "2025-06-01T10:00:00Z",
		"DateUpdatedUTC": "2025-07-15T08:30:00Z",
	}

	contact := decodeContact(raw)

	if contact.ID != "12345" {
		t.Fatalf("numeric ClientID must decode as %q, got %q", "12345", contact.ID)
	}
	if contact.FirstName != "Grace" || contact.LastName != "Hopper" {
		t.Errorf("names = %q %q", contact.FirstName, contact.LastName)
	}
	if contact.Address == nil || contact.Address.Street != "10 Harbor Way" {
		t.Errorf("street not reassembled: %+v", contact.Address)
	}
	if len(contact.Categories) != 2 || contact.Categories[0] != "Buyer" {
		t.Errorf("categories = %v", contact.Categories)
	}
	if contact.CustomFields["Birthday"] != "12/09" || contact.CustomFields["Team"] != "Alpha" {
		t.Errorf("custom fields = %v", contact.CustomFields)
	}
	if contact.CreatedAt == nil || contact.CreatedAt.Year() != 2025 {
		t.Errorf("created at = %v", contact.CreatedAt)
	}
}

func TestDecodeContactMalformedEmbeddedJSON(t *testing.T) {
	contact := decodeContact(map[string]any{
		"ClientID":   "77",
		"Categories": "{not json",
		"CustomData": "also not json",
	})
	if len(contact.Categories) != 0 {
		t.Errorf("malformed categories should decode empty, got %v", contact.Categories)
	}
	if contact.CustomFields != nil {
		t.Errorf("malformed custom data should decode nil, got %v", contact.CustomFields)
	}
	if contact.Address != nil {
		t.Errorf("absent address fields should leave Address nil")
	}
}

func TestTaskParams(t *testing.T) {
	due := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)
	params := taskParams(core.TaskInput{
		Description: "Call back",
		DueDate:     &due,
		Priority:    core.TaskPriorityHigh,
		ContactID:   "12345",
		AssignedTo:  "7",
		Notes:       "prefers mornings",
	})

	if params["requestType"] != "tasks" {
		t.Fatalf("requestType = %q", params["requestType"])
	}
	if params["TaskDue"] != "09/05/2026" {
		t.Errorf("TaskDue = %q, want MM/DD/YYYY", params["TaskDue"])
	}
	if params["Priority"] != "3" {
		t.Errorf("Priority = %q", params["Priority"])
	}
	if params["InsideTeamId"] != "7" || params["TaskNote"] != "prefers mornings" {
		t.Errorf("params = %v", params)
	}
}

func TestPriorityCodesRoundTrip(t *testing.T) {
	for priority, code := range map[core.TaskPriority]string{
		core.TaskPriorityNone:   "0",
		core.TaskPriorityLow:    "1",
		core.TaskPriorityMedium: "2",
		core.TaskPriorityHigh:   "3",
	} {
		if got := priority.PriorityCode(); got != code {
			t.Errorf("%s code = %q, want %q", priority, got, code)
		}
		if got := core.ParsePriorityCode(code); got != priority {
			t.Errorf("parse %q = %s, want %s", code, got, priority)
		}
	}
	if got := core.ParsePriorityCode("9"); got != core.TaskPriorityNone {
		t.Errorf("unknown code should collapse to None, got %s", got)
	}
}

func TestDecodeNote(t *testing.T) {
	note := decodeNote(map[string]any{
		"NoteID":       float64(555),
		"ClientID":     float64(12345),
		"Subject":      "Showing feedback",
		"Note":         "Liked the kitchen",
		"Categories":   `[{"name":"Showings"}]`,
		"NoteDate":     "2026-01-10T15:00:00Z",
		"insideteamid": float64(3),
	})

	if note.ID != "555" || note.ContactID != "12345" {
		t.Errorf("ids = %q %q", note.ID, note.ContactID)
	}
	if note.CreatedBy != "Team Member 3" {
		t.Errorf("CreatedBy = %q", note.CreatedBy)
	}
	if note.CreatedAt.IsZero() {
		t.Errorf("NoteDate not parsed")
	}
}

func TestDecodeTeamMembers(t *testing.T) {
	inside := decodeInsideTeamMember(map[string]any{
		"InsideTeamId": float64(7),
		"Name":         "Pat Realtor",
		"Email":        "pat@example.com",
		"Phone":        "555-0102",
		"Cell":         "555-0103",
		"JobTitle":     "Agent",
	})
	if inside.ID != "7" || inside.Kind != core.TeamMemberInside || inside.JobTitle != "Agent" {
		t.Errorf("inside member = %+v", inside)
	}

	outside := decodeOutsideTeamMember(map[string]any{
		"TeamMember": "Lee Lender",
		"Email":      "lee@example.com",
		"Phone":      "555-0104",
	})
	if outside.ID != "lee@example.com" {
		t.Errorf("outside member must use email as id, got %q", outside.ID)
	}
	if outside.Name != "Lee Lender" || outside.Kind != core.TeamMemberOutside {
		t.Errorf("outside member = %+v", outside)
	}
}

func TestStringify(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{float64(12345), "12345"},
		{"text", "text"},
		{nil, ""},
		{true, "true"},
		{float64(1.5), "1.5"},
	}
	for _, tc := range cases {
		if got := stringify(tc.in); got != tc.want {
			t.Errorf("stringify(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseWireTimeFormats(t *testing.T) {
	for _, raw := range []string{
		"2026-01-10T15:00:00Z",
		"2026-01-10 15:00:00",
		"2026-01-10",
		"01/10/2026",
		"1/10/2026 3:00:00 PM",
	} {
		parsed := parseWireTime(raw)
		if parsed == nil {
			t.Errorf("parseWireTime(%q) = nil", raw)
			continue
		}
		if parsed.Year() != 2026 {
			t.Errorf("parseWireTime(%q) year = %d", raw, parsed.Year())
		}
	}
	if parseWireTime("") != nil {
		t.Errorf("empty timestamp must parse nil")
	}
	if parseWireTime("garbage") != nil {
		t.Errorf("unparsable timestamp must parse nil")
	}
}
