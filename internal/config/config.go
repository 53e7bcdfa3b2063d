package config

import (
	"fmt"
	"os"
	"time"
)

// Default configuration values (production)
const (
	DefaultDomain   = "meet.vconf.dev"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = "" // Optional, empty by default
	DefaultTURNUser = ""
	DefaultTURNPass = ""

	DefaultListenAddr     = ":8080"
	DefaultMongoURI       = "" // empty disables the meeting store
	DefaultMongoDatabase  = "vconf"
	DefaultTranscriberURL = "" // empty disables the /transcribe route

	// DefaultNegotiationTimeout bounds how long a peer session may sit
	// mid-negotiation before it is torn down.
	DefaultNegotiationTimeout = 30 * time.Second
)

// Config holds application configuration
type Config struct {
	// Domain is the coordination server domain
	Domain string

	// WebSocketURL is constructed from domain
	WebSocketURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// Server-side settings
	ListenAddr     string
	MongoURI       string
	MongoDatabase  string
	TranscriberURL string

	NegotiationTimeout time.Duration
}

// Options for loading config with CLI flag overrides
type Options struct {
	Domain     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	ListenAddr     string
	MongoURI       string
	TranscriberURL string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := firstOf(opts.Domain, os.Getenv("DOMAIN"), DefaultDomain)
	stunServer := firstOf(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstOf(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN)
	turnUser := firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME"), DefaultTURNUser)
	turnPass := firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD"), DefaultTURNPass)

	listenAddr := firstOf(opts.ListenAddr, os.Getenv("LISTEN_ADDR"), DefaultListenAddr)
	mongoURI := firstOf(opts.MongoURI, os.Getenv("MONGO_URI"), DefaultMongoURI)
	mongoDB := firstOf(os.Getenv("MONGO_DATABASE"), DefaultMongoDatabase)
	transcriberURL := firstOf(opts.TranscriberURL, os.Getenv("TRANSCRIBER_URL"), DefaultTranscriberURL)

	timeout := DefaultNegotiationTimeout
	if v := os.Getenv("NEGOTIATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid NEGOTIATION_TIMEOUT: %w", err)
		}
		timeout = d
	}

	wsURL := fmt.Sprintf("wss://%s/ws", domain)

	return &Config{
		Domain:             domain,
		WebSocketURL:       wsURL,
		STUNServer:         stunServer,
		TURNServer:         turnServer,
		TURNUser:           turnUser,
		TURNPass:           turnPass,
		ListenAddr:         listenAddr,
		MongoURI:           mongoURI,
		MongoDatabase:      mongoDB,
		TranscriberURL:     transcriberURL,
		NegotiationTimeout: timeout,
	}, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetRoomLink returns the webapp URL for a room ID
func (c *Config) GetRoomLink(roomID string) string {
	return fmt.Sprintf("https://%s/r/%s", c.Domain, roomID)
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
