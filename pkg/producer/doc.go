// Package producer provides the default SpecProducer: an HTTP client
// that posts job specs to a remote executor and polls no further (the
// executor's own status feed, exposed through JobStatusRetriever, is
// what the DagWorker polls afterward).
//
// Grounded on resty.dev/v3, the HTTP client present in the retrieval
// pack (specialistvlad-burstgridgo's transitive dependency set).
package producer
