/*
Package x contains the shared contracts of the migration extensions.

Extensions implement common functionality (Handler, Decorator, Ticker) and
are combined together to construct the origin and the destination chain
applications. This package declares what they share: the Authenticator used
to authorize privileged calls, the Role hierarchy of the migration call
surface and the Domain contract implemented by every migrated part of the
state.
*/
package x
