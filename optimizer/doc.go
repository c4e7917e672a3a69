// Package optimizer rewrites straight-line programs by equality
// saturation.
//
// A block of assignments and prints is translated into an e-graph
// (BuildGraph), saturated with algebraic rules (DefaultRules), reduced to
// its smallest equivalent term and turned back into statements
// (Linearize). Prints are threaded through an effect chain so they come
// back out in program order. Optimize runs the whole pipeline.
//
// Blocks containing If or While are rejected with an *UnsupportedError;
// callers are expected to run such programs unoptimized.
package optimizer
