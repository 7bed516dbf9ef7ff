/*
Package errors implements coded errors shared by every ferry extension.

Each root error is declared once with Register(code, description). Runtime
instances wrap a root error with Wrap or Wrapf, which attaches a stack trace at
the innermost wrap. Use Is to test the kind of an error regardless of how many
times it was wrapped.

The code of the root error is returned to clients as the transaction result
code (see ABCIInfo). Errors that do not wrap a registered root error are
internal and their message is redacted unless running in debug mode.

Codes below 100 are generic. Codes 100 and above describe the migration
protocol:

	ErrEraEndsTooSoon     scheduling
	ErrUnauthorized       authorization
	ErrAccountReferenced  authorization
	ErrWithdrawal         withdrawal on the origin chain
	ErrOutOfWeight        per block budget exhausted
	ErrIntegration        batch integration on the destination chain
	ErrTranslation        non canonical sovereign account

Format an error with %+v to see the full stack trace or with %v to see the
location where it was created.
*/
package errors
