// package services defines the HTTP clients for the migration boundary
//
// MapMyRun (source, TCX export) and Strava (destination, activity uploads).
// Every transport-layer failure is normalized into an [APIError] at this
// boundary; the engine never inspects raw HTTP responses or errors.
package services
