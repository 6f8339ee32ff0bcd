/*
Package ports defines the driven ports (interfaces) for the Reticula engine.

These interfaces decouple inference from external infrastructure, so the same
engine runs with no cache, an in-process cache or a shared Redis instance.

# Key Interfaces

  - ResultCache: stores rendered networks keyed by input fingerprint.
  - DistributedLocker: serialises identical inferences across replicas.
*/
package ports
