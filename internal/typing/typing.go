package typing

// Unit is the empty value carried by effects that only succeed or fail.
type Unit = struct{}
