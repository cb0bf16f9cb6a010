package model

// EventKind tags the payload variant carried by an Event.
type EventKind string

const (
	TokenMint    EventKind = "TokenMint"
	TokenClaim   EventKind = "TokenClaim"
	TokenBurn    EventKind = "TokenBurn"
	TokenSend    EventKind = "TokenSend"
	TokenReceive EventKind = "TokenReceive"
	TokenStake   EventKind = "TokenStake"
	CrownRewards EventKind = "CrownRewards"
	Inflation    EventKind = "Inflation"

	OrderCreated   EventKind = "OrderCreated"
	OrderCancelled EventKind = "OrderCancelled"
	OrderFilled    EventKind = "OrderFilled"
	OrderClosed    EventKind = "OrderClosed"
	OrderBid       EventKind = "OrderBid"

	Infusion EventKind = "Infusion"

	ChainCreate        EventKind = "ChainCreate"
	TokenCreate        EventKind = "TokenCreate"
	ContractDeploy     EventKind = "ContractDeploy"
	ContractUpgrade    EventKind = "ContractUpgrade"
	AddressRegister    EventKind = "AddressRegister"
	AddressUnregister  EventKind = "AddressUnregister"
	OrganizationCreate EventKind = "OrganizationCreate"
	PlatformCreate     EventKind = "PlatformCreate"
	Log                EventKind = "Log"

	Crowdsale          EventKind = "Crowdsale"
	ChainSwap          EventKind = "ChainSwap"
	ValidatorElect     EventKind = "ValidatorElect"
	ValidatorPropose   EventKind = "ValidatorPropose"
	ValueCreate        EventKind = "ValueCreate"
	ValueUpdate        EventKind = "ValueUpdate"
	GasEscrow          EventKind = "GasEscrow"
	GasPayment         EventKind = "GasPayment"
	FileCreate         EventKind = "FileCreate"
	FileDelete         EventKind = "FileDelete"
	OrganizationAdd    EventKind = "OrganizationAdd"
	OrganizationRemove EventKind = "OrganizationRemove"

	ValidatorSwitch   EventKind = "ValidatorSwitch"
	LeaderboardCreate EventKind = "LeaderboardCreate"
	Custom            EventKind = "Custom"
)

var knownEventKinds = map[EventKind]struct{}{
	TokenMint: {}, TokenClaim: {}, TokenBurn: {}, TokenSend: {}, TokenReceive: {},
	TokenStake: {}, CrownRewards: {}, Inflation: {},
	OrderCreated: {}, OrderCancelled: {}, OrderFilled: {}, OrderClosed: {}, OrderBid: {},
	Infusion:    {},
	ChainCreate: {}, TokenCreate: {}, ContractDeploy: {}, ContractUpgrade: {},
	AddressRegister: {}, AddressUnregister: {}, OrganizationCreate: {}, PlatformCreate: {}, Log: {},
	Crowdsale: {}, ChainSwap: {}, ValidatorElect: {}, ValidatorPropose: {},
	ValueCreate: {}, ValueUpdate: {}, GasEscrow: {}, GasPayment: {},
	FileCreate: {}, FileDelete: {}, OrganizationAdd: {}, OrganizationRemove: {},
	ValidatorSwitch: {}, LeaderboardCreate: {}, Custom: {},
}

// KnownEventKind reports whether kind is one the dispatcher recognises.
// Unknown strings are skipped by the ingester, never fatal.
func KnownEventKind(kind EventKind) bool {
	_, ok := knownEventKinds[kind]
	return ok
}
