// Package divergence checks whether a source branch carries commits that are
// missing from a target branch, one repository at a time.
//
// Checker drives every RepositoryDescriptor through fetch, optional branch
// validation, diff and classification, yielding exactly one Outcome per
// repository. Failures are confined to the repository that produced them.
package divergence
