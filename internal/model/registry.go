package model

// Organization is a nexus-registered organization.
type Organization struct {
	ID            string
	Name          string
	Address       string
	Members       []string
	CreateEventID uint64
}

// Platform is an interop platform registered on the nexus.
type Platform struct {
	Name          string
	ChainHash     string
	FuelSymbol    string
	Interops      []PlatformInterop
	Tokens        []string
	CreateEventID uint64
}

// PlatformInterop is one external/local address pair of a platform.
type PlatformInterop struct {
	ExternalAddress string
	LocalAddress    string
}
