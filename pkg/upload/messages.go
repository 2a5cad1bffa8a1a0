package upload

// Notification copy shown to the operator.
const (
	titleUsersFailed      = "Error loading users"
	descUsersFailed       = "Unable to fetch users."
	titleNameRequired     = "Template name required"
	titleImageRequired    = "Image type required"
	titleUserRequired     = "Select a user"
	titleJRXMLRequired    = "No JRXML file selected"
	titleUploadSucceeded  = "Upload Successful"
	descUploadSucceeded   = "Template uploaded successfully!"
	titleUploadFailed     = "Upload Failed"
	descUploadFailed      = "Server error occurred."
	titleNetworkError     = "Network Error"
	descNetworkError      = "Unable to connect to server."
	placeholderSelectUser = "-- Select a Username --"
	placeholderLoading    = "Loading usernames..."
	placeholderNoToken    = "Sign in to load usernames"
	placeholderFailed     = "Usernames unavailable"
	placeholderEmpty      = "No usernames available"
)
