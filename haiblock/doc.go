// Package haiblock provides a client for the HaiBlock content optimization API.
//
// HaiBlock accepts uploaded documents, transforms them into content suited
// for AI model consumption and forwards the result to providers such as
// Amazon Bedrock. All processing runs server-side; this package only issues
// authenticated HTTP requests and decodes the responses.
//
// # Usage
//
// Create a client with the API URL and a bearer token:
//
//	client, err := haiblock.NewClient(
//		"https://api.haiblock.com",
//		token,
//		haiblock.WithLogger(logger),
//		haiblock.WithTimeout(30*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	record, err := client.UploadFile(ctx, "report.txt", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Block until the transformation finishes or five minutes pass
//	result, err := client.TransformContent(ctx, record.ID, haiblock.JobOptions{
//		Wait:         true,
//		PollInterval: 2 * time.Second,
//		Timeout:      5 * time.Minute,
//	})
//
// # Jobs
//
// Transformation and submission are asynchronous on the server. With
// JobOptions.Wait unset the call returns once the job is accepted. With
// Wait set the client polls until a terminal status, returning
// *TimeoutError if JobOptions.Timeout elapses first. Cancelling the context
// stops the wait without touching the server-side job.
//
// # Error Handling
//
// Every failure is a distinct kind that works with errors.Is and errors.As:
//
//   - ErrConfiguration / *ConfigurationError: bad NewClient input
//   - ErrFileAccess / *FileAccessError: a file to upload is missing or unreadable
//   - *APIError: non-2xx response or transport failure, with status and path
//   - ErrNotFound, ErrUnauthorized: matched against *APIError status codes
//   - ErrSchema / *SchemaError: a response did not match its JSON schema
//   - ErrTimeout / *TimeoutError: a job wait exceeded its budget
//   - ErrCancelled: the caller cancelled the context
//   - ErrJobFailed / *JobError: the server job ended in the failed state
//
// GET and DELETE requests are retried on transport errors and 429, 502, 503
// and 504 responses with exponential backoff. Uploads and job submissions
// are never retried.
package haiblock
