// Package notification bridges asynchronous application management
// notifications to a blocking caller.
//
// A Listener is registered for one task name before the task is started
// and resolves exactly once, on the first terminal event. Wait takes an
// explicit timeout so an unresponsive server cannot block forever.
//
// The distribution helpers aggregate the per-node distribution flags a
// DistributionStatusNode task reports into DONE, NOT_DONE or UNKNOWN.
package notification
