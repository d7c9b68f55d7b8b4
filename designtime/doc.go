// Package designtime serves resolved dependency information to editors.
//
// An editor opens a Session with an InitializeMessage naming the project folder and
// configuration. The session resolves the project for each of its target frameworks
// and answers with a ConfigurationsMessage holding, per framework, the compilation
// settings, the resolved dependencies and the assembly references. Refresh
// recomputes after the manifest changes and reports what moved; Watch does so
// automatically.
//
// Messages travel over a duplex stream as newline-delimited JSON envelopes; see
// Message, Encoder and Decoder. Serve runs the request loop on such a stream.
package designtime
