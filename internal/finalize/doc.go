// Package finalize flips a shot's tracker status once its frames have landed
// in the delivery tree, and announces the completed delivery.
package finalize
