package wiseagent

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/estait/crmbridge/core"
)

// The provider flattens a street line into a leading house number and the
// remainder. "123 Main St" splits into AddressNumber=123, AddressStreet=Main St.
var streetPattern = regexp.MustCompile(`^(\d+)?\s*(.*)$`)

const wireDateLayout = "01/02/2006"

// contactCreateParams builds the flat form for contact creation. Create and
// update use different field casings and category delimiters; the two builders
// stay separate on purpose.
func contactCreateParams(input core.ContactInput) map[string]string {
	params := map[string]string{
		"requestType": "webcontact",
		"CFirst":      input.FirstName,
		"CLast":       input.LastName,
		"Source":      input.Source,
	}

	setIfPresent(params, "CEmail", input.Email)
	setIfPresent(params, "HomePhone", input.Phone)
	setIfPresent(params, "MobilePhone", input.MobilePhone)
	setIfPresent(params, "WorkPhone", input.WorkPhone)
	setIfPresent(params, "Company", input.Company)
	setIfPresent(params, "ContactStatus", input.Status)
	setIfPresent(params, "Rank", string(input.Rank))

	if input.Address != nil {
		applyStreet(params, input.Address.Street)
		setIfPresent(params, "City", input.Address.City)
		setIfPresent(params, "State", input.Address.State)
		setIfPresent(params, "zip", input.Address.Zip)
		setIfPresent(params, "country", input.Address.Country)
	}

	if len(input.Categories) > 0 {
		params["Categories"] = strings.Join(input.Categories, ";")
	}
	return params
}

// contactUpdateParams builds the flat form for a contact update. Zip and
// Country are capitalized here, and categories are additive with a comma
// delimiter.
func contactUpdateParams(contactID string, input core.ContactInput) map[string]string {
	params := map[string]string{
		"requestType": "updateContact",
		"clientID":    contactID,
	}

	setIfPresent(params, "CFirst", input.FirstName)
	setIfPresent(params, "CLast", input.LastName)
	setIfPresent(params, "CEmail", input.Email)
	setIfPresent(params, "HomePhone", input.Phone)
	setIfPresent(params, "MobilePhone", input.MobilePhone)
	setIfPresent(params, "WorkPhone", input.WorkPhone)
	setIfPresent(params, "Company", input.Company)
	setIfPresent(params, "ContactStatus", input.Status)
	setIfPresent(params, "Rank", string(input.Rank))

	if input.Address != nil {
		applyStreet(params, input.Address.Street)
		setIfPresent(params, "City", input.Address.City)
		setIfPresent(params, "State", input.Address.State)
		setIfPresent(params, "Zip", input.Address.Zip)
		setIfPresent(params, "Country", input.Address.Country)
	}

	if len(input.Categories) > 0 {
		params["AddCategories"] = strings.Join(input.Categories, ",")
	}
	return params
}

func taskParams(input core.TaskInput) map[string]string {
	params := map[string]string{
		"requestType": "tasks",
		"Description": input.Description,
	}
	if input.DueDate != nil {
		params["TaskDue"] = input.DueDate.Format(wireDateLayout)
	}
	if input.Priority != "" {
		params["Priority"] = input.Priority.PriorityCode()
	}
	setIfPresent(params, "ContactID", input.ContactID)
	setIfPresent(params, "InsideTeamId", input.AssignedTo)
	setIfPresent(params, "TaskNote", input.Notes)
	return params
}

func applyStreet(params map[string]string, street string) {
	if street == "" {
		return
	}
	matches := streetPattern.FindStringSubmatch(street)
	if matches == nil {
		params["AddressStreet"] = street
		return
	}
	if matches[1] != "" {
		params["AddressNumber"] = matches[1]
	}
	if matches[2] != "" {
		params["AddressStreet"] = matches[2]
	}
}

func setIfPresent(params map[string]string, key, value string) {
	if value != "" {
		params[key] = value
	}
}

// decodeContact maps one wire contact object onto the internal shape. Missing
// fields decode to zero values; a reassembled street line joins the number and
// street tokens.
func decodeContact(raw map[string]any) core.Contact {
	contact := core.Contact{
		ID:          stringify(raw["ClientID"]),
		FirstName:   stringify(raw["CFirst"]),
		LastName:    stringify(raw["CLast"]),
		Email:       stringify(raw["CEmail"]),
		Phone:       stringify(raw["HomePhone"]),
		MobilePhone: stringify(raw["MobilePhone"]),
		WorkPhone:   stringify(raw["WorkPhone"]),
		Company:     stringify(raw["Company"]),
		Source:      stringify(raw["Source"]),
		Status:      stringify(raw["Status"]),
		Rank:        stringify(raw["Rank"]),
		Categories:  decodeCategoryList(stringify(raw["Categories"])),
	}

	street := joinStreet(stringify(raw["AddressNumber"]), stringify(raw["AddressStreet"]))
	address := core.Address{
		Street:  street,
		City:    stringify(raw["City"]),
		State:   stringify(raw["State"]),
		Zip:     stringify(raw["Zip"]),
		Country: stringify(raw["Country"]),
	}
	if !address.IsZero() {
		contact.Address = &address
	}

	contact.CreatedAt = parseWireTime(stringify(raw["DateAddedUTC"]))
	contact.UpdatedAt = parseWireTime(stringify(raw["DateUpdatedUTC"]))
	contact.CustomFields = decodeCustomData(stringify(raw["CustomData"]))
	return contact
}

func joinStreet(number, street string) string {
	parts := make([]string, 0, 2)
	if number != "" {
		parts = append(parts, number)
	}
	if street != "" {
		parts = append(parts, street)
	}
	return strings.Join(parts, " ")
}

// decodeCategoryList parses the embedded JSON category payload, a list of
// {"name": ...} objects serialized into a string field.
func decodeCategoryList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var entries []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return []string{}
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Name != "" {
			names = append(names, entry.Name)
		}
	}
	return names
}

// decodeCustomData parses the embedded JSON custom-field payload, a list of
// {"Key", "Value"} pairs serialized into a string field.
func decodeCustomData(raw string) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var entries []struct {
		Key   string `json:"Key"`
		Value string `json:"Value"`
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil
	}
	if len(entries) == 0 {
		return nil
	}
	fields := make(map[string]string, len(entries))
	for _, entry := range entries {
		fields[entry.Key] = entry.Value
	}
	return fields
}

func decodeNote(raw map[string]any) core.Note {
	note := core.Note{
		ID:         stringify(raw["NoteID"]),
		ContactID:  stringify(raw["ClientID"]),
		Subject:    stringify(raw["Subject"]),
		Content:    stringify(raw["Note"]),
		Categories: decodeCategoryList(stringify(raw["Categories"])),
	}
	if created := parseWireTime(stringify(raw["NoteDate"])); created != nil {
		note.CreatedAt = *created
	}
	if teamID := stringify(raw["insideteamid"]); teamID != "" {
		note.CreatedBy = "Team Member " + teamID
	}
	return note
}

func decodeTask(raw map[string]any) core.Task {
	task := core.Task{
		ID:          stringify(raw["TaskID"]),
		Description: stringify(raw["Description"]),
		Priority:    core.ParsePriorityCode(stringify(raw["Priority"])),
		Status:      core.TaskStatusPending,
		ContactID:   stringify(raw["ContactID"]),
		AssignedTo:  stringify(raw["InsideTeamId"]),
	}
	task.DueDate = parseWireTime(stringify(raw["TaskDue"]))
	if created := parseWireTime(stringify(raw["DateCreated"])); created != nil {
		task.CreatedAt = *created
	}
	if truthy(raw["Completed"]) {
		task.Status = core.TaskStatusCompleted
		task.CompletedAt = parseWireTime(stringify(raw["CompletedDate"]))
	}
	return task
}

func decodeInsideTeamMember(raw map[string]any) core.TeamMember {
	return core.TeamMember{
		ID:       stringify(raw["InsideTeamId"]),
		Name:     stringify(raw["Name"]),
		Email:    stringify(raw["Email"]),
		Phone:    stringify(raw["Phone"]),
		Cell:     stringify(raw["Cell"]),
		JobTitle: stringify(raw["JobTitle"]),
		Kind:     core.TeamMemberInside,
	}
}

// decodeOutsideTeamMember maps an outside team entry. Outside members carry no
// numeric ID; their email doubles as the identifier.
func decodeOutsideTeamMember(raw map[string]any) core.TeamMember {
	return core.TeamMember{
		ID:    stringify(raw["Email"]),
		Name:  stringify(raw["TeamMember"]),
		Email: stringify(raw["Email"]),
		Phone: stringify(raw["Phone"]),
		Cell:  stringify(raw["Cell"]),
		Kind:  core.TeamMemberOutside,
	}
}

func decodeMarketingProgram(raw map[string]any) core.MarketingProgram {
	return core.MarketingProgram{
		ID:   stringify(raw["ProgramID"]),
		Name: stringify(raw["ProgramName"]),
	}
}

func decodeLeadSource(raw map[string]any) core.LeadSource {
	return core.LeadSource{
		ID:   stringify(raw["ID"]),
		Name: stringify(raw["Name"]),
	}
}

// stringify renders a decoded JSON scalar as a string. Numeric IDs arrive as
// JSON numbers and must not pick up an exponent or trailing zeros.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	case float64:
		return v != 0
	default:
		return false
	}
}

// parseWireTime accepts the handful of timestamp shapes the provider emits.
func parseWireTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"1/2/2006 3:04:05 PM",
		wireDateLayout,
		"1/2/2006",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}
