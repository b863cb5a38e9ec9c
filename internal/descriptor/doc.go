// Package descriptor parses and renders type, field, method and constructor
// descriptors.
//
// Grammar:
//
//	type        := primitive | object | array
//	primitive   := "V"|"Z"|"C"|"B"|"S"|"I"|"F"|"J"|"D"
//	object      := "L" ident ("/" ident)* ";"
//	array       := "[" type
//	field       := object? ident (":" type)?
//	method      := object? (ident | "<init>" | "<clinit>") ( "(" type* ")" type )?
//	constructor := ( "(" type* ")" )? type
//
// Rendering a parsed descriptor with String reproduces the input exactly.
// Mapped renders the same descriptor with runtime names supplied by a
// Remapper.
package descriptor
