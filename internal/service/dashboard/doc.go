// Package dashboard loads the four record sets, runs the funnel
// classifier and publishes the resulting view.
//
// The loads run concurrently and fail independently: a failed source is
// replaced by an empty set and reported as a Warning on the view. Each
// refresh carries a generation number and is only published when no newer
// generation has been published first, so a slow refresh never replaces a
// newer view.
package dashboard
