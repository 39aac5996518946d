package wiseagent

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/estait/crmbridge/core"
)

const (
	// ProviderID is the stable registry identifier for this adapter.
	ProviderID = "wise_agent"

	providerName = "Wise Agent"
)

// Requester performs one multiplexed API call. Satisfied by transport.Client.
type Requester interface {
	Request(ctx context.Context, userID, method string, params map[string]string) (any, error)
}

// Adapter translates the internal CRM operation surface into Wise Agent wire
// requests. Every operation funnels through a single endpoint discriminated by
// the requestType parameter; the mapper owns the field vocabulary.
type Adapter struct {
	requests Requester
	logger   core.Logger
}

type AdapterOption func(*Adapter)

func WithAdapterLogger(logger core.Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAdapter(requests Requester, options ...AdapterOption) (*Adapter, error) {
	if requests == nil {
		return nil, core.NewConfigurationError("wiseagent: requester is required")
	}
	adapter := &Adapter{
		requests: requests,
		logger:   glog.Ensure(nil),
	}
	for _, option := range options {
		if option != nil {
			option(adapter)
		}
	}
	return adapter, nil
}

func (a *Adapter) ID() string { return ProviderID }

func (a *Adapter) Name() string { return providerName }

func (a *Adapter) CreateContact(ctx context.Context, userID string, input core.ContactInput) (core.Contact, error) {
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return core.Contact{}, core.NewBadInputError("wiseagent: first and last name are required")
	}
	if strings.TrimSpace(input.Source) == "" {
		return core.Contact{}, core.NewBadInputError("wiseagent: source is required")
	}

	response, err := a.requests.Request(ctx, userID, http.MethodPost, contactCreateParams(input))
	if err != nil {
		return core.Contact{}, err
	}

	payload, ok := response.(map[string]any)
	if !ok || !truthy(payload["success"]) {
		return core.Contact{}, core.NewCreateFailedError("wiseagent: contact creation rejected")
	}
	data, _ := payload["data"].(map[string]any)
	contactID := stringify(data["ClientID"])
	if contactID == "" {
		return core.Contact{}, core.NewCreateFailedError("wiseagent: contact creation returned no id")
	}

	contact := core.Contact{
		ID:          contactID,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Email:       input.Email,
		Phone:       input.Phone,
		MobilePhone: input.MobilePhone,
		WorkPhone:   input.WorkPhone,
		Company:     input.Company,
		Address:     input.Address,
		Source:      input.Source,
		Categories:  append([]string(nil), input.Categories...),
		Status:      input.Status,
		Rank:        string(input.Rank),
	}
	a.logger.Info("contact created", "provider", ProviderID, "contact_id", contactID)
	return contact, nil
}

// UpdateContact pushes the changed fields, then re-reads the contact so the
// caller sees the provider's canonical state.
func (a *Adapter) UpdateContact(ctx context.Context, userID, contactID string, input core.ContactInput) (core.Contact, error) {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return core.Contact{}, core.NewBadInputError("wiseagent: contact id is required")
	}

	if _, err := a.requests.Request(ctx, userID, http.MethodPost, contactUpdateParams(contactID, input)); err != nil {
		return core.Contact{}, err
	}

	contact, err := a.GetContact(ctx, userID, contactID)
	if err != nil {
		return core.Contact{}, err
	}
	if contact == nil {
		return core.Contact{}, core.NewNotFoundError("wiseagent: contact not found after update")
	}
	return *contact, nil
}

// GetContact returns nil without error when the contact does not exist.
func (a *Adapter) GetContact(ctx context.Context, userID, contactID string) (*core.Contact, error) {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return nil, core.NewBadInputError("wiseagent: contact id is required")
	}

	response, err := a.requests.Request(ctx, userID, http.MethodGet, map[string]string{
		"requestType": "getSingleContact",
		"clientID":    contactID,
	})
	if err != nil {
		return nil, err
	}

	entries := asObjectList(response)
	if len(entries) == 0 {
		return nil, nil
	}
	contact := decodeContact(entries[0])
	return &contact, nil
}

// SearchContacts runs a count request first, then the page fetch, so Total
// reflects the full match set rather than the returned page.
func (a *Adapter) SearchContacts(ctx context.Context, userID string, query core.SearchQuery) (core.SearchResult, error) {
	params := map[string]string{
		"requestType": "getContacts",
		"page":        query.PageOrDefault(),
		"page_size":   query.PageSizeOrDefault(),
	}
	if query.Email != "" {
		params["email"] = query.Email
	}
	if query.Phone != "" {
		params["phone"] = digitsOnly(query.Phone)
	}
	if query.Query != "" {
		params["nameQuery"] = query.Query
	}
	if len(query.Categories) > 0 {
		params["categories"] = strings.Join(query.Categories, ",")
	}
	if query.UpdatedSince != nil {
		params["DateUpdatedUTC"] = query.UpdatedSince.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	countParams := make(map[string]string, len(params))
	for key, value := range params {
		countParams[key] = value
	}
	countParams["requestType"] = "getContactsCount"

	countResponse, err := a.requests.Request(ctx, userID, http.MethodGet, countParams)
	if err != nil {
		return core.SearchResult{}, err
	}
	total := 0
	if payload, ok := countResponse.(map[string]any); ok {
		if count, ok := payload["count"].(float64); ok {
			total = int(count)
		}
	}

	response, err := a.requests.Request(ctx, userID, http.MethodGet, params)
	if err != nil {
		return core.SearchResult{}, err
	}

	entries := asObjectList(response)
	contacts := make([]core.Contact, 0, len(entries))
	for _, entry := range entries {
		contacts = append(contacts, decodeContact(entry))
	}
	return core.SearchResult{Contacts: contacts, Total: total}, nil
}

func (a *Adapter) CreateNote(ctx context.Context, userID, contactID, content, subject string, categories []string) (core.Note, error) {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return core.Note{}, core.NewBadInputError("wiseagent: contact id is required")
	}
	if strings.TrimSpace(content) == "" {
		return core.Note{}, core.NewBadInputError("wiseagent: note content is required")
	}

	params := map[string]string{
		"requestType": "addContactNote",
		"clientids":   contactID,
		"note":        content,
	}
	if subject != "" {
		params["subject"] = subject
	}
	if len(categories) > 0 {
		params["categories"] = strings.Join(categories, ",")
	}

	response, err := a.requests.Request(ctx, userID, http.MethodPost, params)
	if err != nil {
		return core.Note{}, err
	}

	entries := asObjectList(response)
	if len(entries) == 0 || !truthy(entries[0]["success"]) {
		return core.Note{}, core.NewCreateFailedError("wiseagent: note creation rejected")
	}
	noteID := ""
	if data := asObjectList(entries[0]["data"]); len(data) > 0 {
		noteID = stringify(data[0]["NoteID"])
	}
	if noteID == "" {
		return core.Note{}, core.NewCreateFailedError("wiseagent: note creation returned no id")
	}

	return core.Note{
		ID:         noteID,
		ContactID:  contactID,
		Subject:    subject,
		Content:    content,
		Categories: append([]string(nil), categories...),
	}, nil
}

func (a *Adapter) GetNotes(ctx context.Context, userID, contactID string) ([]core.Note, error) {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return nil, core.NewBadInputError("wiseagent: contact id is required")
	}

	response, err := a.requests.Request(ctx, userID, http.MethodGet, map[string]string{
		"requestType": "getContactNotes",
		"ClientID":    contactID,
		"page":        "1",
		"page_size":   "100",
	})
	if err != nil {
		return nil, err
	}

	entries := asObjectList(response)
	notes := make([]core.Note, 0, len(entries))
	for _, entry := range entries {
		notes = append(notes, decodeNote(entry))
	}
	return notes, nil
}

func (a *Adapter) CreateTask(ctx context.Context, userID string, input core.TaskInput) (core.Task, error) {
	if strings.TrimSpace(input.Description) == "" {
		return core.Task{}, core.NewBadInputError("wiseagent: task description is required")
	}

	response, err := a.requests.Request(ctx, userID, http.MethodPost, taskParams(input))
	if err != nil {
		return core.Task{}, err
	}

	payload, ok := response.(map[string]any)
	if !ok || !truthy(payload["success"]) {
		return core.Task{}, core.NewCreateFailedError("wiseagent: task creation rejected")
	}
	taskID := stringify(payload["TaskID"])
	if taskID == "" {
		return core.Task{}, core.NewCreateFailedError("wiseagent: task creation returned no id")
	}

	priority := input.Priority
	if priority == "" {
		priority = core.TaskPriorityNone
	}
	return core.Task{
		ID:          taskID,
		Description: input.Description,
		DueDate:     input.DueDate,
		Priority:    priority,
		Status:      core.TaskStatusPending,
		ContactID:   input.ContactID,
		AssignedTo:  input.AssignedTo,
	}, nil
}

func (a *Adapter) GetTasks(ctx context.Context, userID, contactID string) ([]core.Task, error) {
	params := map[string]string{
		"requestType": "getTasks",
		"page":        "1",
		"page_size":   "100",
	}
	if contactID = strings.TrimSpace(contactID); contactID != "" {
		params["ContactID"] = contactID
	}

	response, err := a.requests.Request(ctx, userID, http.MethodGet, params)
	if err != nil {
		return nil, err
	}

	entries := asObjectList(response)
	tasks := make([]core.Task, 0, len(entries))
	for _, entry := range entries {
		tasks = append(tasks, decodeTask(entry))
	}
	return tasks, nil
}

// GetTeam merges the inside and outside rosters into one list. Outside
// members use their email as the identifier.
func (a *Adapter) GetTeam(ctx context.Context, userID string) ([]core.TeamMember, error) {
	insideResponse, err := a.requests.Request(ctx, userID, http.MethodGet, map[string]string{
		"requestType": "getTeam",
	})
	if err != nil {
		return nil, err
	}
	outsideResponse, err := a.requests.Request(ctx, userID, http.MethodGet, map[string]string{
		"requestType": "getOutsideTeam",
	})
	if err != nil {
		return nil, err
	}

	members := []core.TeamMember{}
	for _, entry := range asObjectList(insideResponse) {
		members = append(members, decodeInsideTeamMember(entry))
	}
	for _, entry := range asObjectList(outsideResponse) {
		members = append(members, decodeOutsideTeamMember(entry))
	}
	return members, nil
}

func (a *Adapter) GetMarketingPrograms(ctx context.Context, userID string) ([]core.MarketingProgram, error) {
	response, err := a.requests.Request(ctx, userID, http.MethodGet, map[string]string{
		"requestType": "getPrograms",
	})
	if err != nil {
		return nil, err
	}

	entries := asObjectList(response)
	programs := make([]core.MarketingProgram, 0, len(entries))
	for _, entry := range entries {
		programs = append(programs, decodeMarketingProgram(entry))
	}
	return programs, nil
}

func (a *Adapter) AddContactsToProgram(ctx context.Context, userID string, contactIDs []string, programID string) (bool, error) {
	if len(contactIDs) == 0 {
		return false, core.NewBadInputError("wiseagent: at least one contact id is required")
	}
	if strings.TrimSpace(programID) == "" {
		return false, core.NewBadInputError("wiseagent: program id is required")
	}

	response, err := a.requests.Request(ctx, userID, http.MethodPost, map[string]string{
		"requestType": "addClientsToMarketingProgram",
		"clientids":   strings.Join(contactIDs, ","),
		"programID":   programID,
	})
	if err != nil {
		return false, err
	}

	entries := asObjectList(response)
	if len(entries) == 0 {
		return false, nil
	}
	return truthy(entries[0]["success"]), nil
}

func (a *Adapter) GetLeadSources(ctx context.Context, userID string) ([]core.LeadSource, error) {
	response, err := a.requests.Request(ctx, userID, http.MethodGet, map[string]string{
		"requestType": "getSources",
	})
	if err != nil {
		return nil, err
	}

	entries := asObjectList(response)
	sources := make([]core.LeadSource, 0, len(entries))
	for _, entry := range entries {
		sources = append(sources, decodeLeadSource(entry))
	}
	return sources, nil
}

// GenerateSSOLink fetches a one-time login URL. The endpoint answers with a
// bare string; an optional target page is appended as a query parameter.
func (a *Adapter) GenerateSSOLink(ctx context.Context, userID, targetPage string) (string, error) {
	response, err := a.requests.Request(ctx, userID, http.MethodGet, map[string]string{
		"requestType": "getLoginToken",
	})
	if err != nil {
		return "", err
	}

	link, ok := response.(string)
	if !ok || strings.TrimSpace(link) == "" {
		return "", core.NewSSOFailedError("wiseagent: login token request returned no link")
	}
	if targetPage != "" {
		link += "&page=" + url.QueryEscape(targetPage)
	}
	return link, nil
}

// asObjectList normalizes a decoded payload into a list of JSON objects,
// tolerating both bare arrays and non-list shapes.
func asObjectList(value any) []map[string]any {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	entries := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if entry, ok := item.(map[string]any); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var _ core.Adapter = (*Adapter)(nil)
