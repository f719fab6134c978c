package model

import (
	"fmt"
	"net"
	"strings"
	"time"
)

type Product string

const (
	ProductWindows Product = "Windows"
	ProductOffice  Product = "Office"
	ProductVisio   Product = "Visio"
	ProductProject Product = "Project"
)

type DeployMode string

const (
	ModeInteractive    DeployMode = "interactive"
	ModeSilent         DeployMode = "silent"
	ModeNonInteractive DeployMode = "noninteractive"
)

// ParseDeployMode normalizes a user-supplied deploy mode string.
func ParseDeployMode(s string) (DeployMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeInteractive):
		return ModeInteractive, nil
	case string(ModeSilent):
		return ModeSilent, nil
	case string(ModeNonInteractive), "non-interactive":
		return ModeNonInteractive, nil
	}
	return "", fmt.Errorf("unknown deploy mode %q", s)
}

// ActivationStatus describes the licensing state of one product as reported
// by its licensing tool. Rebuilt fresh on every query, never persisted.
type ActivationStatus struct {
	Product     Product `json:"product"`
	IsMAK       bool    `json:"is_mak"`
	Last5       string  `json:"last5,omitempty"`
	KMSHost     string  `json:"kms_host,omitempty"` // host[:port] as reported, empty when unset
	LicenseName string  `json:"license_name,omitempty"`
	Channel     string  `json:"channel,omitempty"`
}

// KMSTarget is a KMS server endpoint split into comparable parts.
type KMSTarget struct {
	Host string `json:"host"`
	Port string `json:"port"`
}

// ParseKMSTarget splits a reported "host[:port]" string, falling back to
// defaultPort when the tool omitted the port.
func ParseKMSTarget(s, defaultPort string) KMSTarget {
	s = strings.TrimSpace(s)
	if s == "" {
		return KMSTarget{}
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return KMSTarget{Host: s, Port: defaultPort}
	}
	return KMSTarget{Host: host, Port: port}
}

// Equal compares two targets, host case-insensitively.
func (t KMSTarget) Equal(o KMSTarget) bool {
	return strings.EqualFold(t.Host, o.Host) && t.Port == o.Port
}

func (t KMSTarget) String() string {
	if t.Host == "" {
		return ""
	}
	return net.JoinHostPort(t.Host, t.Port)
}

type ActionKind string

const (
	ActionInstallKey   ActionKind = "install_key"
	ActionUnpublishKey ActionKind = "unpublish_key"
	ActionSetKMSTarget ActionKind = "set_kms_target"
	ActionSetKMSHost   ActionKind = "set_kms_host"
	ActionSetKMSPort   ActionKind = "set_kms_port"
	ActionActivate     ActionKind = "activate"
)

// Action records a single licensing mutation issued to an external tool.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Product  Product    `json:"product"`
	Argument string     `json:"argument,omitempty"`
	ExitCode int        `json:"exit_code"`
	Error    string     `json:"error,omitempty"`
}

// InstalledApp is one entry from the installed-application inventory.
type InstalledApp struct {
	DisplayName    string `json:"display_name"`
	DisplayVersion string `json:"display_version,omitempty"`
}

// RemediationResult aggregates everything a single run observed and did.
type RemediationResult struct {
	Session        string             `json:"session,omitempty"`
	OSVersion      string             `json:"os_version,omitempty"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     *time.Time         `json:"finished_at,omitempty"`
	Before         []ActivationStatus `json:"before,omitempty"`
	After          []ActivationStatus `json:"after,omitempty"`
	Actions        []Action           `json:"actions,omitempty"`
	Changed        bool               `json:"changed"`
	RebootRequired bool               `json:"reboot_required"`
}
