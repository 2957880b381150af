// Package commands implements the quietdrop CLI.
//
// Modes
//
//	quietdrop server
//	    Load or create the server key pair in --key-dir, then accept one
//	    sealed envelope per TCP connection on --listen, acknowledging each
//	    envelope that decrypts. With --http the server also serves its
//	    public key, account registration and a WebSocket entry point.
//
//	quietdrop client
//	    Seal a message to the server key and send it. Without --message an
//	    interactive form is shown.
//
// Any other mode is a usage error. Every flag has a QD_* environment
// variable counterpart; see internal/config.
package commands
