package crmbridge

import (
	"github.com/estait/crmbridge/core"
)

type Config = core.Config
type ProviderConfig = core.ProviderConfig

type Adapter = core.Adapter
type AdapterRegistry = core.AdapterRegistry
type TokenStore = core.TokenStore
type SecretProvider = core.SecretProvider
type TokenSource = core.TokenSource

type Contact = core.Contact
type ContactInput = core.ContactInput
type Address = core.Address
type Note = core.Note
type Task = core.Task
type TaskInput = core.TaskInput
type TaskPriority = core.TaskPriority
type TeamMember = core.TeamMember
type MarketingProgram = core.MarketingProgram
type LeadSource = core.LeadSource
type SearchQuery = core.SearchQuery
type SearchResult = core.SearchResult
type TokenSet = core.TokenSet
type StoredTokenSet = core.StoredTokenSet

var (
	DefaultConfig       = core.DefaultConfig
	NewAdapterRegistry  = core.NewAdapterRegistry
	NewMemoryTokenStore = core.NewMemoryTokenStore
)
