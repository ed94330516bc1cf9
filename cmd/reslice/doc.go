// Command reslice is the operator CLI for the reslice daemon. It submits
// studies, polls job status, and inspects daemon health over the HTTP API.
package main
