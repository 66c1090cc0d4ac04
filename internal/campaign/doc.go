// Package campaign holds the broadcast domain model: message definitions,
// recipients, delivery outcomes and run reports.
//
// Everything here is plain data plus pure helpers; persistence and transport
// live elsewhere.
package campaign
