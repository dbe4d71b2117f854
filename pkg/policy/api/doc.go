// Package api is the stable evaluation surface exposed to the rest of the
// system. It maps raw rule results into issues with a three-level severity
// scale and pairs every check with the policy version content hash, so
// downstream consumers can tie a decision to the exact rule set that
// produced it.
package api
