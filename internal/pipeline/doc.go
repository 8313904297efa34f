// Package pipeline implements the code upload and execution flow: a
// simulated compile delay, an upload confirmation that auto-chains into
// exactly one execution, and two execution strategies. The default strategy
// scans the code text for known print idioms and emits canned output; when
// an external bridge process serves the device, the code runs on real
// hardware and its output is relayed line by line.
package pipeline
