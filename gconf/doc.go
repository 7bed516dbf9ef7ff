/*
Package gconf stores the configuration of each extension in the chain state.

An extension keeps its settings in one record under "_c:<package name>". The
record is written from the genesis file with InitConfig and read back with
Load or LoadOr. Save validates every record, so a chain never reads a value
that did not pass validation.
*/
package gconf
