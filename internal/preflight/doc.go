// Package preflight verifies the environment before deliveries run:
// tracker connectivity, delivery root access and free space, and
// template configuration. The daemon refuses to start when a required
// check fails, and the CLI surfaces the same checks on demand.
package preflight
