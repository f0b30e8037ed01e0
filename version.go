package connector

// Version is reported to the board in status payloads.
const Version = "1.0.3"
