// Package optimizer defines the contract of the optimization routine run by
// the background worker. The routine turns a job into machine code or fails;
// the coordinator treats it as a black box.
package optimizer
