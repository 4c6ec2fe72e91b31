/*
Package session manages live consultations for long-running hosts.

A Manager creates conversations, serializes turns per session (locally and,
with a DistributedLocker, across replicas), persists a snapshot after every
Start and Send, restores sessions on demand and publishes a report when a
consultation completes.
*/
package session
