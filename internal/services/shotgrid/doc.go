// Package shotgrid implements a REST client for the production-tracking
// service. It authenticates with script credentials, queries shots and their
// published frame sequences, and flips shot statuses once deliveries land.
package shotgrid
