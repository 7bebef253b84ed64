// Package dashboard defines the types shared by the dataset adapters, the loader and the HTTP surface.
package dashboard
