// Package simplecms provides the generic resource-access layer of a
// content-management backend: model-agnostic listing with a pagination
// envelope, cascading deletion with best-effort release of externally
// stored assets, and atomic reordering of position-ordered collections.
//
// It exposes a single Service interface driven at runtime by entity
// descriptors registered once at startup. A descriptor declares an
// entity's fields, which fields hold blob-store locators, and which child
// collections cascade on delete; every generic component consults the
// descriptor instead of reflecting over data. Implementations of the
// Repository (memory, Postgres) and the BlobStore (memory, S3) are
// provided under subpackages.
//
// Asset fields are declared, not detected: whether a string value is a
// blob locator is schema configuration, so a value that merely looks like
// an upload path is never treated as one.
package simplecms
