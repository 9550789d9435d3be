// Package httputil holds the JSON response helpers shared by the API
// handlers. Handlers write through these instead of touching
// http.ResponseWriter directly so error bodies and logging stay uniform.
package httputil
