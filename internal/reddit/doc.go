// Package reddit connects the pipeline to the Reddit API: a comment Stream
// that implements feed.Source and a Client whose PostReply implements
// action.Replier.
//
// Authentication uses the OAuth2 password grant for script apps. Every
// request, including the token request, carries the configured User-Agent.
package reddit
